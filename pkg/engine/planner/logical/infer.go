package logical

import (
	"github.com/grafana/regexp"

	"github.com/JacekPliszka/polars/pkg/engine/internal/aggregate"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// TypeOf infers the result type of e evaluated against schema, without
// touching any data.
func TypeOf(e Expr, schema types.Schema) (types.DataType, error) {
	return typeOf(e, schema, false)
}

func typeOf(e Expr, schema types.Schema, inAggregate bool) (types.DataType, error) {
	switch e := e.(type) {
	case *ColumnExpr:
		f, ok := schema.Field(e.Name)
		if !ok {
			return types.Invalid, errors.Schemaf(e.Name, "column not found")
		}
		return f.Type, nil

	case *LiteralExpr:
		if e.Value.Type() == types.Invalid {
			return types.Invalid, errors.DataTypef(e.String(), "unsupported literal")
		}
		return e.Value.Type(), nil

	case *BinaryExpr:
		l, err := typeOf(e.Left, schema, inAggregate)
		if err != nil {
			return types.Invalid, err
		}
		r, err := typeOf(e.Right, schema, inAggregate)
		if err != nil {
			return types.Invalid, err
		}
		t, ok := e.Op.ResultType(l, r)
		if !ok {
			return types.Invalid, errors.DataTypef(e.String(), "cannot apply %s to %s and %s", e.Op, l, r)
		}
		return t, nil

	case *UnaryExpr:
		in, err := typeOf(e.Value, schema, inAggregate)
		if err != nil {
			return types.Invalid, err
		}
		t, ok := e.Op.ResultType(in)
		if !ok {
			return types.Invalid, errors.DataTypef(e.String(), "cannot apply %s to %s", e.Op, in)
		}
		return t, nil

	case *AggregateExpr:
		if inAggregate {
			return types.Invalid, errors.Computef(e.String(), "nested aggregations are not supported")
		}
		in, err := typeOf(e.Value, schema, true)
		if err != nil {
			return types.Invalid, err
		}
		t, ok := e.Op.ResultType(in)
		if !ok {
			return types.Invalid, errors.DataTypef(e.String(), "cannot compute %s of %s", e.Op, in)
		}
		return t, nil

	case *WindowExpr:
		if inAggregate {
			return types.Invalid, errors.Computef(e.String(), "window expressions cannot be aggregated")
		}
		for _, p := range e.PartitionBy {
			if ContainsAggregate(p) || ContainsWindow(p) {
				return types.Invalid, errors.Computef(p.String(), "partition keys must be row-wise expressions")
			}
			if _, err := typeOf(p, schema, false); err != nil {
				return types.Invalid, err
			}
		}
		if ContainsWindow(e.Value) {
			return types.Invalid, errors.Computef(e.String(), "nested window expressions are not supported")
		}
		return typeOf(e.Value, schema, false)

	case *ConditionalExpr:
		result := types.Null
		for _, b := range e.Branches {
			cond, err := typeOf(b.When, schema, inAggregate)
			if err != nil {
				return types.Invalid, err
			}
			if cond != types.Bool && cond != types.Null {
				return types.Invalid, errors.DataTypef(b.When.String(), "condition must be Bool, got %s", cond)
			}
			then, err := typeOf(b.Then, schema, inAggregate)
			if err != nil {
				return types.Invalid, err
			}
			if result, err = supertype(e, result, then); err != nil {
				return types.Invalid, err
			}
		}
		other, err := typeOf(e.otherwise(), schema, inAggregate)
		if err != nil {
			return types.Invalid, err
		}
		return supertype(e, result, other)

	case *CastExpr:
		in, err := typeOf(e.Value, schema, inAggregate)
		if err != nil {
			return types.Invalid, err
		}
		if !types.CanCast(in, e.To) {
			return types.Invalid, errors.DataTypef(e.String(), "cannot cast %s to %s", in, e.To)
		}
		return e.To, nil

	case *FunctionExpr:
		return functionType(e, schema, inAggregate)

	case *AliasExpr:
		return typeOf(e.Value, schema, inAggregate)
	}
	return types.Invalid, errors.Schemaf("", "unsupported expression %T", e)
}

func supertype(e Expr, a, b types.DataType) (types.DataType, error) {
	t, ok := types.Supertype(a, b)
	if !ok {
		return types.Invalid, errors.DataTypef(e.String(), "incompatible types %s and %s", a, b)
	}
	return t, nil
}

func functionType(e *FunctionExpr, schema types.Schema, inAggregate bool) (types.DataType, error) {
	args := make([]types.DataType, len(e.Args))
	for i, arg := range e.Args {
		t, err := typeOf(arg, schema, inAggregate)
		if err != nil {
			return types.Invalid, err
		}
		args[i] = t
	}

	wantArgs := 1
	switch e.Func {
	case types.FunctionFillNull:
		wantArgs = 2
	case types.FunctionCoalesce:
		if len(args) == 0 {
			return types.Invalid, errors.Computef(e.String(), "coalesce needs at least one argument")
		}
		wantArgs = len(args)
	}
	if len(args) != wantArgs {
		return types.Invalid, errors.Computef(e.String(), "%s takes %d arguments, got %d", e.Func, wantArgs, len(args))
	}

	switch e.Func {
	case types.FunctionAbs, types.FunctionRound:
		if !args[0].IsNumeric() && args[0] != types.Null {
			return types.Invalid, errors.DataTypef(e.String(), "%s requires a numeric argument, got %s", e.Func, args[0])
		}
		return args[0], nil

	case types.FunctionFillNull, types.FunctionCoalesce:
		result := types.Null
		for _, t := range args {
			var err error
			if result, err = supertype(e, result, t); err != nil {
				return types.Invalid, err
			}
		}
		return result, nil

	case types.FunctionContains:
		if args[0] != types.String && args[0] != types.Categorical && args[0] != types.Null {
			return types.Invalid, errors.DataTypef(e.String(), "contains requires a string argument, got %s", args[0])
		}
		if _, err := regexp.Compile(e.Options.Pattern); err != nil {
			return types.Invalid, errors.Computef(e.String(), "invalid pattern: %s", err)
		}
		return types.Bool, nil

	case types.FunctionCumSum, types.FunctionShift,
		types.FunctionRollingSum, types.FunctionRollingMean, types.FunctionRollingMin, types.FunctionRollingMax:
		if e.Func.IsRolling() && e.Options.Window <= 0 {
			return types.Invalid, errors.Computef(e.String(), "window size must be positive")
		}
		t, ok := aggregate.SequenceResultType(e.Func, args[0])
		if !ok {
			return types.Invalid, errors.DataTypef(e.String(), "cannot compute %s of %s", e.Func, args[0])
		}
		return t, nil
	}
	return types.Invalid, errors.Computef(e.String(), "unsupported function %s", e.Func)
}

// OutputName returns the name of the column produced by e: its alias, else
// its left-most column reference, else "literal".
func OutputName(e Expr) string {
	if a, ok := e.(*AliasExpr); ok {
		return a.Name
	}
	name := ""
	Walk(e, func(e Expr) bool {
		if name != "" {
			return false
		}
		if c, ok := e.(*ColumnExpr); ok {
			name = c.Name
		}
		return true
	})
	if name == "" {
		return "literal"
	}
	return name
}

// Walk calls fn for e and its sub-expressions in depth-first pre-order.
// Children of an expression are skipped if fn returns false.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, child := range children(e) {
		Walk(child, fn)
	}
}

func children(e Expr) []Expr {
	switch e := e.(type) {
	case *BinaryExpr:
		return []Expr{e.Left, e.Right}
	case *UnaryExpr:
		return []Expr{e.Value}
	case *AggregateExpr:
		return []Expr{e.Value}
	case *WindowExpr:
		return append([]Expr{e.Value}, e.PartitionBy...)
	case *ConditionalExpr:
		out := make([]Expr, 0, 2*len(e.Branches)+1)
		for _, b := range e.Branches {
			out = append(out, b.When, b.Then)
		}
		return append(out, e.otherwise())
	case *CastExpr:
		return []Expr{e.Value}
	case *FunctionExpr:
		return e.Args
	case *AliasExpr:
		return []Expr{e.Value}
	}
	return nil
}

// Transform rebuilds e bottom-up, replacing every sub-expression with the
// result of fn. fn receives expressions whose children are already
// transformed.
func Transform(e Expr, fn func(Expr) Expr) Expr {
	switch e := e.(type) {
	case *BinaryExpr:
		return fn(&BinaryExpr{Left: Transform(e.Left, fn), Right: Transform(e.Right, fn), Op: e.Op})
	case *UnaryExpr:
		return fn(&UnaryExpr{Value: Transform(e.Value, fn), Op: e.Op})
	case *AggregateExpr:
		return fn(&AggregateExpr{Value: Transform(e.Value, fn), Op: e.Op, Quantile: e.Quantile})
	case *WindowExpr:
		return fn(&WindowExpr{Value: Transform(e.Value, fn), PartitionBy: transformAll(e.PartitionBy, fn)})
	case *ConditionalExpr:
		branches := make([]WhenThen, len(e.Branches))
		for i, b := range e.Branches {
			branches[i] = WhenThen{When: Transform(b.When, fn), Then: Transform(b.Then, fn)}
		}
		var otherwise Expr
		if e.Otherwise != nil {
			otherwise = Transform(e.Otherwise, fn)
		}
		return fn(&ConditionalExpr{Branches: branches, Otherwise: otherwise})
	case *CastExpr:
		return fn(&CastExpr{Value: Transform(e.Value, fn), To: e.To, Strict: e.Strict})
	case *FunctionExpr:
		return fn(&FunctionExpr{Func: e.Func, Args: transformAll(e.Args, fn), Options: e.Options})
	case *AliasExpr:
		return fn(&AliasExpr{Value: Transform(e.Value, fn), Name: e.Name})
	}
	return fn(e)
}

func transformAll(exprs []Expr, fn func(Expr) Expr) []Expr {
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = Transform(e, fn)
	}
	return out
}

// Columns returns the distinct column names referenced by exprs, in order of
// first reference.
func Columns(exprs ...Expr) []string {
	var (
		seen = make(map[string]struct{})
		out  []string
	)
	for _, e := range exprs {
		Walk(e, func(e Expr) bool {
			if c, ok := e.(*ColumnExpr); ok {
				if _, dup := seen[c.Name]; !dup {
					seen[c.Name] = struct{}{}
					out = append(out, c.Name)
				}
			}
			return true
		})
	}
	return out
}

func contains(e Expr, pred func(Expr) bool) bool {
	found := false
	Walk(e, func(e Expr) bool {
		if found || pred(e) {
			found = true
			return false
		}
		return true
	})
	return found
}

// ContainsAggregate reports whether e contains an aggregate outside of a
// window.
func ContainsAggregate(e Expr) bool {
	found := false
	Walk(e, func(e Expr) bool {
		switch e.(type) {
		case *WindowExpr:
			return false
		case *AggregateExpr:
			found = true
		}
		return !found
	})
	return found
}

// ContainsWindow reports whether e contains a window expression.
func ContainsWindow(e Expr) bool {
	return contains(e, func(e Expr) bool { return e.Type() == ExprTypeWindow })
}

// ContainsSequence reports whether e contains a function whose result at one
// row depends on other rows.
func ContainsSequence(e Expr) bool {
	return contains(e, func(e Expr) bool {
		f, ok := e.(*FunctionExpr)
		return ok && f.Func.IsSequence()
	})
}

// IsRowLocal reports whether every output row of e depends only on the same
// input row. Row-local expressions can be evaluated on arbitrary row chunks.
func IsRowLocal(e Expr) bool {
	return !contains(e, func(e Expr) bool {
		switch e := e.(type) {
		case *AggregateExpr, *WindowExpr:
			return true
		case *FunctionExpr:
			return e.Func.IsSequence()
		}
		return false
	})
}

// IsScalar reports whether e produces a single value regardless of the number
// of input rows: every column it references is inside an aggregation.
func IsScalar(e Expr) bool {
	scalar := true
	Walk(e, func(e Expr) bool {
		switch e.(type) {
		case *AggregateExpr:
			return false
		case *ColumnExpr, *WindowExpr:
			scalar = false
		}
		return scalar
	})
	return scalar
}

// Unalias strips a top-level alias from e.
func Unalias(e Expr) Expr {
	for {
		a, ok := e.(*AliasExpr)
		if !ok {
			return e
		}
		e = a.Value
	}
}

// SplitConjunction splits e at its top-level AND operators.
func SplitConjunction(e Expr) []Expr {
	if b, ok := e.(*BinaryExpr); ok && b.Op == types.BinaryOpAnd {
		return append(SplitConjunction(b.Left), SplitConjunction(b.Right)...)
	}
	return []Expr{e}
}
