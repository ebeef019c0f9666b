package executor

import (
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// castArray converts arr to type to. Values that cannot be represented fail
// a strict cast and become null otherwise.
func castArray(mem memory.Allocator, arr arrow.Array, to types.DataType, strict bool, cache *types.StringCache, subject string) (arrow.Array, error) {
	from, err := typeOfArray(arr)
	if err != nil {
		return nil, errors.DataTypef(subject, "%s", err)
	}
	if from == to {
		arr.Retain()
		return arr, nil
	}
	if !types.CanCast(from, to) && !(from == types.Categorical && to.IsStringLike()) {
		return nil, errors.DataTypef(subject, "cannot cast %s to %s", from, to)
	}
	switch {
	case to == types.Categorical:
		return arrowutil.EncodeCategorical(mem, arr, cache), nil
	case from == types.Null:
		return arrowutil.Nulls(mem, to, arr.Len()), nil
	}

	acc := arrowutil.NewAccessor(arr)
	values := make([]any, arr.Len())
	for i := range values {
		if acc.IsNull(i) {
			continue
		}
		v, ok := castValue(&acc, i, from, to)
		if !ok {
			if strict {
				return nil, errors.DataTypef(subject, "cannot cast value %v of type %s to %s", acc.Value(i), from, to)
			}
			continue
		}
		values[i] = v
	}
	return arrowutil.FromValues(mem, to, values, cache)
}

func castValue(acc *arrowutil.Accessor, i int, from, to types.DataType) (any, bool) {
	if from == types.Categorical {
		from = types.String
	}
	switch to {
	case types.String:
		return formatValue(acc, i, from), true

	case types.Bool:
		if from == types.String {
			b, err := strconv.ParseBool(acc.Str(i))
			return b, err == nil
		}
		if from == types.Float64 {
			return acc.Float(i) != 0, true
		}
		return acc.Int(i) != 0, true

	case types.Int32, types.Int64, types.Timestamp, types.Duration:
		x, ok := toInt(acc, i, from, to)
		if !ok {
			return nil, false
		}
		if to == types.Int32 {
			if x < math.MinInt32 || x > math.MaxInt32 {
				return nil, false
			}
			return int32(x), true
		}
		return x, true

	case types.Float64:
		if from == types.String {
			f, err := strconv.ParseFloat(acc.Str(i), 64)
			return f, err == nil
		}
		return acc.Float(i), true
	}
	return nil, false
}

func toInt(acc *arrowutil.Accessor, i int, from, to types.DataType) (int64, bool) {
	switch from {
	case types.Float64:
		f := acc.Float(i)
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case types.String:
		s := acc.Str(i)
		switch to {
		case types.Timestamp:
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return 0, false
			}
			return t.UnixNano(), true
		case types.Duration:
			d, err := time.ParseDuration(s)
			return int64(d), err == nil
		}
		x, err := strconv.ParseInt(s, 10, 64)
		return x, err == nil
	}
	return acc.Int(i), true
}

func formatValue(acc *arrowutil.Accessor, i int, from types.DataType) string {
	switch from {
	case types.Bool:
		return strconv.FormatBool(acc.Bool(i))
	case types.Float64:
		return strconv.FormatFloat(acc.Float(i), 'g', -1, 64)
	case types.Timestamp:
		return time.Unix(0, acc.Int(i)).UTC().Format(time.RFC3339Nano)
	case types.Duration:
		return time.Duration(acc.Int(i)).String()
	case types.String:
		return acc.Str(i)
	}
	return strconv.FormatInt(acc.Int(i), 10)
}

// coerce casts arr to dt if its type differs. Planned types are always
// reachable by a lossless cast from the computed ones.
func coerce(mem memory.Allocator, arr arrow.Array, dt types.DataType, cache *types.StringCache, subject string) (arrow.Array, error) {
	if arrow.TypeEqual(arr.DataType(), dt.ArrowType()) {
		return arr, nil
	}
	defer arr.Release()
	if dt == types.Null {
		return array.NewNull(arr.Len()), nil
	}
	return castArray(mem, arr, dt, true, cache, subject)
}
