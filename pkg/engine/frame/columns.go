package frame

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Allocator is used by the column constructors in this package.
var Allocator memory.Allocator = memory.DefaultAllocator

// NewColumn builds a column of type dt from Go values, where nil is a null.
// Values use the representation of [types.Literal]; ints are accepted for
// integer columns and time.Time/time.Duration for temporal columns.
func NewColumn(name string, dt types.DataType, values ...any) (Column, error) {
	normalized := make([]any, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case int:
			if dt == types.Float64 {
				normalized[i] = float64(v)
			} else {
				normalized[i] = int64(v)
			}
		case time.Time:
			normalized[i] = v.UnixNano()
		case time.Duration:
			normalized[i] = int64(v)
		default:
			normalized[i] = v
		}
	}

	var cache *types.StringCache
	if dt == types.Categorical {
		cache = types.NewStringCache()
	}
	arr, err := arrowutil.FromValues(Allocator, dt, normalized, cache)
	if err != nil {
		return Column{}, fmt.Errorf("column %s: %w", name, err)
	}
	return Column{Name: name, Array: arr}, nil
}

func mustColumn(name string, dt types.DataType, values []any) Column {
	col, err := NewColumn(name, dt, values...)
	if err != nil {
		panic(err)
	}
	return col
}

// Int64s returns an Int64 column. It panics if a value is not an integer or
// nil.
func Int64s(name string, values ...any) Column { return mustColumn(name, types.Int64, values) }

// Int32s returns an Int32 column.
func Int32s(name string, values ...any) Column { return mustColumn(name, types.Int32, values) }

// Float64s returns a Float64 column.
func Float64s(name string, values ...any) Column { return mustColumn(name, types.Float64, values) }

// Strings returns a String column.
func Strings(name string, values ...any) Column { return mustColumn(name, types.String, values) }

// Bools returns a Bool column.
func Bools(name string, values ...any) Column { return mustColumn(name, types.Bool, values) }

// Timestamps returns a Timestamp column from time.Time or int64 nanosecond
// values.
func Timestamps(name string, values ...any) Column { return mustColumn(name, types.Timestamp, values) }

// Durations returns a Duration column from time.Duration or int64
// nanosecond values.
func Durations(name string, values ...any) Column { return mustColumn(name, types.Duration, values) }

// MustNew is like [New] but panics on error, and releases the caller's
// references to the column arrays. It is meant for tests and examples.
func MustNew(cols ...Column) *Frame {
	f, err := New(cols...)
	for _, col := range cols {
		if col.Array != nil {
			col.Array.Release()
		}
	}
	if err != nil {
		panic(err)
	}
	return f
}
