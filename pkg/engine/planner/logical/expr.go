package logical

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// ExprType is the kind of an [Expr].
type ExprType uint8

const (
	ExprTypeInvalid ExprType = iota

	ExprTypeColumn      // Reference to an input column.
	ExprTypeLiteral     // Constant value.
	ExprTypeBinary      // Binary operation.
	ExprTypeUnary       // Unary operation.
	ExprTypeAggregate   // One value per group.
	ExprTypeWindow      // Aggregate or expression evaluated per partition.
	ExprTypeConditional // when/then/otherwise.
	ExprTypeCast        // Type conversion.
	ExprTypeFunction    // Named scalar or sequence function.
	ExprTypeAlias       // Renamed expression.
)

var exprTypeStrings = map[ExprType]string{
	ExprTypeInvalid:     "invalid",
	ExprTypeColumn:      "Column",
	ExprTypeLiteral:     "Literal",
	ExprTypeBinary:      "Binary",
	ExprTypeUnary:       "Unary",
	ExprTypeAggregate:   "Aggregate",
	ExprTypeWindow:      "Window",
	ExprTypeConditional: "Conditional",
	ExprTypeCast:        "Cast",
	ExprTypeFunction:    "Function",
	ExprTypeAlias:       "Alias",
}

func (t ExprType) String() string {
	if s, ok := exprTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("ExprType(%d)", t)
}

// Expr is a declarative computation over the columns of a plan's input.
// Expressions are immutable values; the set of implementations is closed.
type Expr interface {
	Type() ExprType
	String() string
	isExpr()
}

// ColumnExpr references the input column Name.
type ColumnExpr struct {
	Name string
}

// LiteralExpr is a constant.
type LiteralExpr struct {
	Value types.Literal
}

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Left, Right Expr
	Op          types.BinaryOp
}

// UnaryExpr applies Op to Value.
type UnaryExpr struct {
	Value Expr
	Op    types.UnaryOp
}

// AggregateExpr reduces Value to one value per group.
type AggregateExpr struct {
	Value Expr
	Op    types.AggregationType

	// Quantile is the requested quantile for
	// [types.AggregationTypeQuantile].
	Quantile float64
}

// WindowExpr evaluates Value separately for every partition of rows with
// equal PartitionBy values. Aggregate results are broadcast to every row of
// their partition; other results are scattered back to the original rows.
type WindowExpr struct {
	Value       Expr
	PartitionBy []Expr
}

// WhenThen is one branch of a [ConditionalExpr].
type WhenThen struct {
	When, Then Expr
}

// ConditionalExpr evaluates to the Then value of the first branch whose When
// condition is true, or Otherwise. A null condition counts as false.
type ConditionalExpr struct {
	Branches  []WhenThen
	Otherwise Expr
}

// CastExpr converts Value to type To. Strict casts fail on values that
// cannot be converted; lenient casts turn them into nulls.
type CastExpr struct {
	Value  Expr
	To     types.DataType
	Strict bool
}

// FunctionOptions hold the non-expression parameters of a [FunctionExpr].
type FunctionOptions struct {
	Decimals   int    // round
	Periods    int    // shift
	Window     int    // rolling_*
	MinPeriods int    // rolling_*; zero means Window
	Pattern    string // contains
}

// FunctionExpr applies a named function to Args.
type FunctionExpr struct {
	Func    types.Function
	Args    []Expr
	Options FunctionOptions
}

// AliasExpr renames the output of Value.
type AliasExpr struct {
	Value Expr
	Name  string
}

var (
	_ Expr = (*ColumnExpr)(nil)
	_ Expr = (*LiteralExpr)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*UnaryExpr)(nil)
	_ Expr = (*AggregateExpr)(nil)
	_ Expr = (*WindowExpr)(nil)
	_ Expr = (*ConditionalExpr)(nil)
	_ Expr = (*CastExpr)(nil)
	_ Expr = (*FunctionExpr)(nil)
	_ Expr = (*AliasExpr)(nil)
)

func (*ColumnExpr) isExpr()      {}
func (*LiteralExpr) isExpr()     {}
func (*BinaryExpr) isExpr()      {}
func (*UnaryExpr) isExpr()       {}
func (*AggregateExpr) isExpr()   {}
func (*WindowExpr) isExpr()      {}
func (*ConditionalExpr) isExpr() {}
func (*CastExpr) isExpr()        {}
func (*FunctionExpr) isExpr()    {}
func (*AliasExpr) isExpr()       {}

func (*ColumnExpr) Type() ExprType      { return ExprTypeColumn }
func (*LiteralExpr) Type() ExprType     { return ExprTypeLiteral }
func (*BinaryExpr) Type() ExprType      { return ExprTypeBinary }
func (*UnaryExpr) Type() ExprType       { return ExprTypeUnary }
func (*AggregateExpr) Type() ExprType   { return ExprTypeAggregate }
func (*WindowExpr) Type() ExprType      { return ExprTypeWindow }
func (*ConditionalExpr) Type() ExprType { return ExprTypeConditional }
func (*CastExpr) Type() ExprType        { return ExprTypeCast }
func (*FunctionExpr) Type() ExprType    { return ExprTypeFunction }
func (*AliasExpr) Type() ExprType       { return ExprTypeAlias }

func (e *ColumnExpr) String() string  { return "col(" + e.Name + ")" }
func (e *LiteralExpr) String() string { return e.Value.String() }

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

func (e *UnaryExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Op, e.Value)
}

func (e *AggregateExpr) String() string {
	if e.Op == types.AggregationTypeQuantile {
		return fmt.Sprintf("quantile(%s, %s)", e.Value, strconv.FormatFloat(e.Quantile, 'g', -1, 64))
	}
	return fmt.Sprintf("%s(%s)", e.Op, e.Value)
}

func (e *WindowExpr) String() string {
	return fmt.Sprintf("%s.over(%s)", e.Value, joinExprs(e.PartitionBy))
}

func (e *ConditionalExpr) String() string {
	var sb strings.Builder
	for _, b := range e.Branches {
		fmt.Fprintf(&sb, "when(%s).then(%s).", b.When, b.Then)
	}
	fmt.Fprintf(&sb, "otherwise(%s)", e.otherwise())
	return sb.String()
}

func (e *ConditionalExpr) otherwise() Expr {
	if e.Otherwise == nil {
		return &LiteralExpr{Value: types.NullLiteral()}
	}
	return e.Otherwise
}

func (e *CastExpr) String() string {
	name := "cast"
	if e.Strict {
		name = "strict_cast"
	}
	return fmt.Sprintf("%s(%s, %s)", name, e.Value, e.To)
}

func (e *FunctionExpr) String() string {
	args := joinExprs(e.Args)
	switch {
	case e.Func == types.FunctionRound:
		return fmt.Sprintf("round(%s, %d)", args, e.Options.Decimals)
	case e.Func == types.FunctionShift:
		return fmt.Sprintf("shift(%s, %d)", args, e.Options.Periods)
	case e.Func == types.FunctionContains:
		return fmt.Sprintf("contains(%s, %s)", args, strconv.Quote(e.Options.Pattern))
	case e.Func.IsRolling():
		return fmt.Sprintf("%s(%s, window=%d, min_periods=%d)", e.Func, args, e.Options.Window, e.minPeriods())
	}
	return fmt.Sprintf("%s(%s)", e.Func, args)
}

func (e *FunctionExpr) minPeriods() int {
	if e.Options.MinPeriods <= 0 {
		return e.Options.Window
	}
	return e.Options.MinPeriods
}

func (e *AliasExpr) String() string {
	return fmt.Sprintf("%s AS %s", e.Value, e.Name)
}

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
