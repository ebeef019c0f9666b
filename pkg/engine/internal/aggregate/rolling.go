package aggregate

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// SequenceResultType returns the type produced by the sequence function fn
// applied to values of type in.
func SequenceResultType(fn types.Function, in types.DataType) (types.DataType, bool) {
	switch {
	case in == types.Null:
		return types.Null, fn == types.FunctionShift
	case fn == types.FunctionShift:
		return in, true
	case !in.IsNumeric() && in != types.Bool:
		return types.Invalid, false
	case fn == types.FunctionRollingMean:
		return types.Float64, true
	case in == types.Float64:
		return types.Float64, true
	}
	return types.Int64, true
}

// Rolling applies a fixed-size window function to values. The window of row
// i covers rows [i-window+1, i]. Windows with fewer than minPeriods non-null
// values produce null.
func Rolling(mem memory.Allocator, fn types.Function, values arrow.Array, window, minPeriods int, subject string) (arrow.Array, error) {
	if window <= 0 {
		return nil, errors.Computef(subject, "window size must be positive, got %d", window)
	}
	if minPeriods <= 0 || minPeriods > window {
		minPeriods = window
	}

	in, err := types.FromArrow(values.DataType())
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	out, ok := SequenceResultType(fn, in)
	if !ok || out == types.Null {
		return nil, errors.DataTypef(subject, "cannot compute %s of %s", fn, in)
	}

	acc := arrowutil.NewAccessor(values)
	b := arrowutil.NewBuilder(mem, out)
	defer b.Release()
	b.Reserve(values.Len())

	for i := 0; i < values.Len(); i++ {
		var (
			count int
			sum   float64
			isum  int64
			best  = math.NaN()
			ibest int64
		)
		for j := max(0, i-window+1); j <= i; j++ {
			if acc.IsNull(j) {
				continue
			}
			switch fn {
			case types.FunctionRollingSum, types.FunctionRollingMean:
				sum += acc.Float(j)
				var overflow bool
				if isum, overflow = addInt64(isum, acc.Int(j)); overflow && out == types.Int64 {
					return nil, errors.Computef(subject, "integer overflow in %s", fn)
				}
			case types.FunctionRollingMin, types.FunctionRollingMax:
				if count == 0 || better(fn, acc.Float(j), best) {
					best, ibest = acc.Float(j), acc.Int(j)
				}
			}
			count++
		}

		if count < minPeriods {
			b.AppendNull()
			continue
		}
		var v any
		switch {
		case fn == types.FunctionRollingMean:
			v = sum / float64(count)
		case fn == types.FunctionRollingSum && out == types.Float64:
			v = sum
		case fn == types.FunctionRollingSum:
			v = isum
		case out == types.Float64:
			v = best
		default:
			v = ibest
		}
		if err := arrowutil.Append(b, v); err != nil {
			return nil, errors.DataTypef(subject, "%s", err)
		}
	}
	return b.NewArray(), nil
}

func better(fn types.Function, candidate, current float64) bool {
	if fn == types.FunctionRollingMin {
		return candidate < current
	}
	return candidate > current
}

// CumSum returns the running sum of values. Null rows stay null and do not
// reset the sum.
func CumSum(mem memory.Allocator, values arrow.Array, subject string) (arrow.Array, error) {
	in, err := types.FromArrow(values.DataType())
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	out, ok := SequenceResultType(types.FunctionCumSum, in)
	if !ok || out == types.Null {
		return nil, errors.DataTypef(subject, "cannot compute cum_sum of %s", in)
	}

	acc := arrowutil.NewAccessor(values)
	b := arrowutil.NewBuilder(mem, out)
	defer b.Release()
	b.Reserve(values.Len())

	var (
		isum int64
		fsum float64
	)
	for i := 0; i < values.Len(); i++ {
		if acc.IsNull(i) {
			b.AppendNull()
			continue
		}
		if out == types.Float64 {
			fsum += acc.Float(i)
			if err := arrowutil.Append(b, fsum); err != nil {
				return nil, errors.DataTypef(subject, "%s", err)
			}
			continue
		}
		var overflow bool
		if isum, overflow = addInt64(isum, acc.Int(i)); overflow {
			return nil, errors.Computef(subject, "integer overflow in cum_sum")
		}
		if err := arrowutil.Append(b, isum); err != nil {
			return nil, errors.DataTypef(subject, "%s", err)
		}
	}
	return b.NewArray(), nil
}

// Shift moves values down by n rows (up if n is negative), filling vacated
// rows with null.
func Shift(mem memory.Allocator, values arrow.Array, n int) arrow.Array {
	positions := make([]int, values.Len())
	for i := range positions {
		src := i - n
		if src < 0 || src >= values.Len() {
			src = -1
		}
		positions[i] = src
	}
	return arrowutil.Take(mem, values, positions)
}
