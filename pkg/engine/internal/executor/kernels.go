package executor

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/grafana/regexp"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// build creates an array of n values of type dt. value returns the Go
// representation of row i, or nil for null.
func build(mem memory.Allocator, dt types.DataType, n int, value func(i int) (any, error)) (arrow.Array, error) {
	if dt == types.Null {
		return array.NewNull(n), nil
	}
	b := arrowutil.NewBuilder(mem, dt)
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		v, err := value(i)
		if err != nil {
			return nil, err
		}
		if err := arrowutil.Append(b, v); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

func typeOfArray(arr arrow.Array) (types.DataType, error) {
	return types.FromArrow(arr.DataType())
}

// binary applies op row by row. Nulls propagate, except for the Kleene
// semantics of the logical operators.
func binary(mem memory.Allocator, op types.BinaryOp, l, r arrow.Array, subject string) (arrow.Array, error) {
	if l.Len() != r.Len() {
		return nil, errors.Shapef(subject, "operands have %d and %d rows", l.Len(), r.Len())
	}
	lt, err := typeOfArray(l)
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	rt, err := typeOfArray(r)
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	out, ok := op.ResultType(lt, rt)
	if !ok {
		return nil, errors.DataTypef(subject, "cannot apply %s to %s and %s", op, lt, rt)
	}

	var (
		n      = l.Len()
		la, ra = arrowutil.NewAccessor(l), arrowutil.NewAccessor(r)
	)
	switch {
	case op.IsComparison():
		return build(mem, types.Bool, n, func(i int) (any, error) {
			if la.IsNull(i) || ra.IsNull(i) {
				return nil, nil
			}
			return compare(op, la.Compare(i, &ra, i)), nil
		})
	case op.IsLogical():
		return build(mem, types.Bool, n, func(i int) (any, error) {
			return logic(op, &la, &ra, i), nil
		})
	}

	switch out {
	case types.Null:
		return array.NewNull(n), nil

	case types.Float64:
		return build(mem, out, n, func(i int) (any, error) {
			if la.IsNull(i) || ra.IsNull(i) {
				return nil, nil
			}
			return floatArith(op, la.Float(i), ra.Float(i)), nil
		})

	case types.String:
		return build(mem, out, n, func(i int) (any, error) {
			if la.IsNull(i) || ra.IsNull(i) {
				return nil, nil
			}
			return la.Str(i) + ra.Str(i), nil
		})
	}

	return build(mem, out, n, func(i int) (any, error) {
		if la.IsNull(i) || ra.IsNull(i) {
			return nil, nil
		}
		v, err := intArith(op, la.Int(i), ra.Int(i))
		if err != nil {
			return nil, errors.Computef(subject, "%s", err)
		}
		return v, nil
	})
}

func compare(op types.BinaryOp, c int) bool {
	switch op {
	case types.BinaryOpEq:
		return c == 0
	case types.BinaryOpNeq:
		return c != 0
	case types.BinaryOpGt:
		return c > 0
	case types.BinaryOpGte:
		return c >= 0
	case types.BinaryOpLt:
		return c < 0
	case types.BinaryOpLte:
		return c <= 0
	}
	return false
}

// logic evaluates op with three-valued logic: false AND null is false and
// true OR null is true. XOR is null if either side is.
func logic(op types.BinaryOp, l, r *arrowutil.Accessor, i int) any {
	ln, rn := l.IsNull(i), r.IsNull(i)
	switch op {
	case types.BinaryOpAnd:
		if (!ln && !l.Bool(i)) || (!rn && !r.Bool(i)) {
			return false
		}
		if ln || rn {
			return nil
		}
		return true
	case types.BinaryOpOr:
		if (!ln && l.Bool(i)) || (!rn && r.Bool(i)) {
			return true
		}
		if ln || rn {
			return nil
		}
		return false
	default:
		if ln || rn {
			return nil
		}
		return l.Bool(i) != r.Bool(i)
	}
}

// floatArith follows IEEE 754: division by zero yields an infinity or NaN.
// Modulo takes the sign of the divisor.
func floatArith(op types.BinaryOp, a, b float64) float64 {
	switch op {
	case types.BinaryOpAdd:
		return a + b
	case types.BinaryOpSub:
		return a - b
	case types.BinaryOpMul:
		return a * b
	case types.BinaryOpDiv:
		return a / b
	case types.BinaryOpMod:
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m
	}
	return math.NaN()
}

type arithError string

func (e arithError) Error() string { return string(e) }

const (
	errOverflow     arithError = "integer overflow"
	errDivideByZero arithError = "integer division by zero"
)

// intArith is checked integer arithmetic. Division truncates toward zero;
// modulo takes the sign of the divisor.
func intArith(op types.BinaryOp, a, b int64) (int64, error) {
	switch op {
	case types.BinaryOpAdd:
		c := a + b
		if (a^c)&(b^c) < 0 {
			return 0, errOverflow
		}
		return c, nil
	case types.BinaryOpSub:
		c := a - b
		if (a^b)&(a^c) < 0 {
			return 0, errOverflow
		}
		return c, nil
	case types.BinaryOpMul:
		if a == 0 || b == 0 {
			return 0, nil
		}
		c := a * b
		if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, errOverflow
		}
		return c, nil
	case types.BinaryOpDiv:
		if b == 0 {
			return 0, errDivideByZero
		}
		if a == math.MinInt64 && b == -1 {
			return 0, errOverflow
		}
		return a / b, nil
	case types.BinaryOpMod:
		if b == 0 {
			return 0, errDivideByZero
		}
		if b == -1 {
			return 0, nil
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	}
	return 0, arithError("unsupported operator " + op.String())
}

func unary(mem memory.Allocator, op types.UnaryOp, v arrow.Array, subject string) (arrow.Array, error) {
	in, err := typeOfArray(v)
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	out, ok := op.ResultType(in)
	if !ok {
		return nil, errors.DataTypef(subject, "cannot apply %s to %s", op, in)
	}

	var (
		n   = v.Len()
		acc = arrowutil.NewAccessor(v)
	)
	switch op {
	case types.UnaryOpIsNull, types.UnaryOpIsNotNull:
		want := op == types.UnaryOpIsNull
		return build(mem, types.Bool, n, func(i int) (any, error) {
			return acc.IsNull(i) == want, nil
		})
	case types.UnaryOpNot:
		return build(mem, types.Bool, n, func(i int) (any, error) {
			if acc.IsNull(i) {
				return nil, nil
			}
			return !acc.Bool(i), nil
		})
	}

	// Negation.
	return build(mem, out, n, func(i int) (any, error) {
		if acc.IsNull(i) {
			return nil, nil
		}
		if out == types.Float64 {
			return -acc.Float(i), nil
		}
		x := acc.Int(i)
		if x == math.MinInt64 {
			return nil, errors.Computef(subject, "%s", errOverflow)
		}
		return -x, nil
	})
}

func abs(mem memory.Allocator, v arrow.Array, subject string) (arrow.Array, error) {
	dt, err := typeOfArray(v)
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	acc := arrowutil.NewAccessor(v)
	return build(mem, dt, v.Len(), func(i int) (any, error) {
		if acc.IsNull(i) {
			return nil, nil
		}
		switch dt {
		case types.Float64:
			return math.Abs(acc.Float(i)), nil
		case types.Int32:
			x := int32(acc.Int(i))
			if x == math.MinInt32 {
				return nil, errors.Computef(subject, "%s", errOverflow)
			}
			if x < 0 {
				x = -x
			}
			return x, nil
		}
		x := acc.Int(i)
		if x == math.MinInt64 {
			return nil, errors.Computef(subject, "%s", errOverflow)
		}
		if x < 0 {
			x = -x
		}
		return x, nil
	})
}

// round rounds floats half away from zero to the given number of decimals.
// Integers are returned unchanged.
func round(mem memory.Allocator, v arrow.Array, decimals int) (arrow.Array, error) {
	if v.DataType().ID() != arrow.FLOAT64 {
		v.Retain()
		return v, nil
	}
	var (
		acc   = arrowutil.NewAccessor(v)
		scale = math.Pow10(decimals)
	)
	return build(mem, types.Float64, v.Len(), func(i int) (any, error) {
		if acc.IsNull(i) {
			return nil, nil
		}
		x := acc.Float(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return x, nil
		}
		return math.Round(x*scale) / scale, nil
	})
}

// coalesce returns, for every row, the first non-null value among arrs. All
// arrays must already have type dt.
func coalesce(mem memory.Allocator, dt types.DataType, arrs []arrow.Array, cache *types.StringCache) (arrow.Array, error) {
	accs := make([]arrowutil.Accessor, len(arrs))
	for i, arr := range arrs {
		accs[i] = arrowutil.NewAccessor(arr)
	}
	n := arrs[0].Len()
	values := make([]any, n)
	for i := range values {
		for j := range accs {
			if v := accs[j].Value(i); v != nil {
				values[i] = v
				break
			}
		}
	}
	return arrowutil.FromValues(mem, dt, values, cache)
}

// contains matches every non-null string of v against pattern. Categorical
// arrays match each dictionary entry once.
func contains(mem memory.Allocator, v arrow.Array, pattern, subject string) (arrow.Array, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Computef(subject, "invalid pattern: %s", err)
	}

	match := func(i int) bool { return false }
	acc := arrowutil.NewAccessor(v)
	if dict, ok := v.(*array.Dictionary); ok {
		entries := arrowutil.NewAccessor(dict.Dictionary())
		matched := make([]bool, entries.Len())
		for i := range matched {
			matched[i] = !entries.IsNull(i) && re.MatchString(entries.Str(i))
		}
		match = func(i int) bool { return matched[dict.GetValueIndex(i)] }
	} else if v.DataType().ID() != arrow.NULL {
		match = func(i int) bool { return re.MatchString(acc.Str(i)) }
	}

	return build(mem, types.Bool, v.Len(), func(i int) (any, error) {
		if acc.IsNull(i) {
			return nil, nil
		}
		return match(i), nil
	})
}
