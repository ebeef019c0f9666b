package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Col references the input column name.
func Col(name string) *ColumnExpr { return &ColumnExpr{Name: name} }

// Cols references several input columns.
func Cols(names ...string) []Expr {
	exprs := make([]Expr, len(names))
	for i, name := range names {
		exprs[i] = Col(name)
	}
	return exprs
}

// Lit returns a literal holding v.
func Lit[T types.LiteralValue](v T) *LiteralExpr { return &LiteralExpr{Value: types.NewLiteral(v)} }

// LitValue wraps an existing literal.
func LitValue(v types.Literal) *LiteralExpr { return &LiteralExpr{Value: v} }

// Null returns an untyped null literal.
func Null() *LiteralExpr { return &LiteralExpr{Value: types.NullLiteral()} }

// Binary applies op to l and r.
func Binary(op types.BinaryOp, l, r Expr) *BinaryExpr {
	return &BinaryExpr{Left: l, Right: r, Op: op}
}

func Eq(l, r Expr) *BinaryExpr  { return Binary(types.BinaryOpEq, l, r) }
func Neq(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpNeq, l, r) }
func Gt(l, r Expr) *BinaryExpr  { return Binary(types.BinaryOpGt, l, r) }
func Gte(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpGte, l, r) }
func Lt(l, r Expr) *BinaryExpr  { return Binary(types.BinaryOpLt, l, r) }
func Lte(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpLte, l, r) }
func Add(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpAdd, l, r) }
func Sub(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpSub, l, r) }
func Mul(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpMul, l, r) }
func Div(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpDiv, l, r) }
func Mod(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpMod, l, r) }
func Or(l, r Expr) *BinaryExpr  { return Binary(types.BinaryOpOr, l, r) }
func Xor(l, r Expr) *BinaryExpr { return Binary(types.BinaryOpXor, l, r) }

// And combines all exprs with logical AND. It returns nil without exprs.
func And(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if out == nil {
			out = e
			continue
		}
		out = Binary(types.BinaryOpAnd, out, e)
	}
	return out
}

func Not(e Expr) *UnaryExpr       { return &UnaryExpr{Value: e, Op: types.UnaryOpNot} }
func Neg(e Expr) *UnaryExpr       { return &UnaryExpr{Value: e, Op: types.UnaryOpNeg} }
func IsNull(e Expr) *UnaryExpr    { return &UnaryExpr{Value: e, Op: types.UnaryOpIsNull} }
func IsNotNull(e Expr) *UnaryExpr { return &UnaryExpr{Value: e, Op: types.UnaryOpIsNotNull} }

// AggregateOf applies op to e.
func AggregateOf(op types.AggregationType, e Expr) *AggregateExpr {
	return &AggregateExpr{Value: e, Op: op}
}

func Sum(e Expr) *AggregateExpr     { return AggregateOf(types.AggregationTypeSum, e) }
func Mean(e Expr) *AggregateExpr    { return AggregateOf(types.AggregationTypeMean, e) }
func Minimum(e Expr) *AggregateExpr { return AggregateOf(types.AggregationTypeMin, e) }
func Maximum(e Expr) *AggregateExpr { return AggregateOf(types.AggregationTypeMax, e) }
func Count(e Expr) *AggregateExpr   { return AggregateOf(types.AggregationTypeCount, e) }
func Len(e Expr) *AggregateExpr     { return AggregateOf(types.AggregationTypeLen, e) }
func Median(e Expr) *AggregateExpr  { return AggregateOf(types.AggregationTypeMedian, e) }
func First(e Expr) *AggregateExpr   { return AggregateOf(types.AggregationTypeFirst, e) }
func Last(e Expr) *AggregateExpr    { return AggregateOf(types.AggregationTypeLast, e) }
func NUnique(e Expr) *AggregateExpr { return AggregateOf(types.AggregationTypeNUnique, e) }
func Std(e Expr) *AggregateExpr     { return AggregateOf(types.AggregationTypeStd, e) }
func Var(e Expr) *AggregateExpr     { return AggregateOf(types.AggregationTypeVar, e) }

// Quantile returns the q-th quantile of e, interpolating linearly.
func Quantile(e Expr, q float64) *AggregateExpr {
	return &AggregateExpr{Value: e, Op: types.AggregationTypeQuantile, Quantile: q}
}

// Over evaluates e per partition of rows with equal partitionBy values.
func Over(e Expr, partitionBy ...Expr) *WindowExpr {
	return &WindowExpr{Value: e, PartitionBy: partitionBy}
}

// When starts a conditional expression.
func When(cond, then Expr) *ConditionalExpr {
	return &ConditionalExpr{Branches: []WhenThen{{When: cond, Then: then}}}
}

// When returns a copy of e with an additional branch.
func (e *ConditionalExpr) When(cond, then Expr) *ConditionalExpr {
	branches := append(append([]WhenThen(nil), e.Branches...), WhenThen{When: cond, Then: then})
	return &ConditionalExpr{Branches: branches, Otherwise: e.Otherwise}
}

// Else returns a copy of e with the given fallback value.
func (e *ConditionalExpr) Else(otherwise Expr) *ConditionalExpr {
	return &ConditionalExpr{Branches: e.Branches, Otherwise: otherwise}
}

// Cast converts e to t, producing null for values that cannot be converted.
func Cast(e Expr, t types.DataType) *CastExpr { return &CastExpr{Value: e, To: t} }

// StrictCast converts e to t and fails on values that cannot be converted.
func StrictCast(e Expr, t types.DataType) *CastExpr { return &CastExpr{Value: e, To: t, Strict: true} }

func call(fn types.Function, opts FunctionOptions, args ...Expr) *FunctionExpr {
	return &FunctionExpr{Func: fn, Args: args, Options: opts}
}

func Abs(e Expr) *FunctionExpr { return call(types.FunctionAbs, FunctionOptions{}, e) }

// Round rounds e to the given number of decimals, half away from zero.
func Round(e Expr, decimals int) *FunctionExpr {
	return call(types.FunctionRound, FunctionOptions{Decimals: decimals}, e)
}

// FillNull replaces nulls of e with fill.
func FillNull(e, fill Expr) *FunctionExpr { return call(types.FunctionFillNull, FunctionOptions{}, e, fill) }

// Coalesce returns the first non-null value of exprs per row.
func Coalesce(exprs ...Expr) *FunctionExpr {
	return call(types.FunctionCoalesce, FunctionOptions{}, exprs...)
}

func CumSum(e Expr) *FunctionExpr { return call(types.FunctionCumSum, FunctionOptions{}, e) }

// Shift moves values of e down by periods rows, or up if negative.
func Shift(e Expr, periods int) *FunctionExpr {
	return call(types.FunctionShift, FunctionOptions{Periods: periods}, e)
}

// Contains reports whether the string values of e match the regular
// expression pattern anywhere.
func Contains(e Expr, pattern string) *FunctionExpr {
	return call(types.FunctionContains, FunctionOptions{Pattern: pattern}, e)
}

// Rolling applies the rolling function fn over a fixed window. A zero
// minPeriods requires a full window.
func Rolling(fn types.Function, e Expr, window, minPeriods int) *FunctionExpr {
	return call(fn, FunctionOptions{Window: window, MinPeriods: minPeriods}, e)
}

// Alias names the output of e.
func Alias(e Expr, name string) *AliasExpr { return &AliasExpr{Value: e, Name: name} }
