package arrowutil

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// NewBuilder returns a builder for values of type dt. Categorical columns
// are built through a [types.StringCache] with [EncodeCategorical] instead.
func NewBuilder(mem memory.Allocator, dt types.DataType) array.Builder {
	if dt == types.Categorical {
		dt = types.String
	}
	return array.NewBuilder(mem, dt.ArrowType())
}

// Append appends v to b. v must use the Go representation of
// [types.Literal]; nil appends a null.
func Append(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch b := b.(type) {
	case *array.NullBuilder:
		b.AppendNull()
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return appendError(b, v)
		}
		b.Append(x)
	case *array.Int32Builder:
		switch x := v.(type) {
		case int32:
			b.Append(x)
		case int64:
			b.Append(int32(x))
		default:
			return appendError(b, v)
		}
	case *array.Int64Builder:
		switch x := v.(type) {
		case int32:
			b.Append(int64(x))
		case int64:
			b.Append(x)
		case int:
			b.Append(int64(x))
		default:
			return appendError(b, v)
		}
	case *array.Float64Builder:
		switch x := v.(type) {
		case float64:
			b.Append(x)
		case int64:
			b.Append(float64(x))
		case int32:
			b.Append(float64(x))
		case int:
			b.Append(float64(x))
		default:
			return appendError(b, v)
		}
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return appendError(b, v)
		}
		b.Append(x)
	case *array.TimestampBuilder:
		x, ok := v.(int64)
		if !ok {
			return appendError(b, v)
		}
		b.Append(arrow.Timestamp(x))
	case *array.DurationBuilder:
		x, ok := v.(int64)
		if !ok {
			return appendError(b, v)
		}
		b.Append(arrow.Duration(x))
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func appendError(b array.Builder, v any) error {
	return fmt.Errorf("cannot append %T to %s column", v, b.Type())
}

// FromValues builds an array of type dt from Go values. Categorical arrays
// are encoded against cache, which must not be nil for that type.
func FromValues(mem memory.Allocator, dt types.DataType, values []any, cache *types.StringCache) (arrow.Array, error) {
	if dt == types.Categorical {
		if cache == nil {
			return nil, errors.New("categorical values require a string cache")
		}
		strs := NewBuilder(mem, types.String)
		defer strs.Release()
		for _, v := range values {
			if err := Append(strs, v); err != nil {
				return nil, err
			}
		}
		arr := strs.NewArray()
		defer arr.Release()
		return EncodeCategorical(mem, arr, cache), nil
	}

	b := NewBuilder(mem, dt)
	defer b.Release()
	b.Reserve(len(values))
	for _, v := range values {
		if err := Append(b, v); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

// Repeat returns an array of n copies of lit.
func Repeat(mem memory.Allocator, lit types.Literal, n int) (arrow.Array, error) {
	if lit.IsNull() {
		return Nulls(mem, lit.Type(), n), nil
	}

	b := NewBuilder(mem, lit.Type())
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		if err := Append(b, lit.Value()); err != nil {
			return nil, err
		}
	}
	return b.NewArray(), nil
}

// Nulls returns an array of type dt with n null rows.
func Nulls(mem memory.Allocator, dt types.DataType, n int) arrow.Array {
	if dt == types.Invalid || dt == types.Null {
		return array.NewNull(n)
	}
	b := NewBuilder(mem, dt)
	defer b.Release()
	b.AppendNulls(n)
	return b.NewArray()
}

// EncodeCategorical encodes a String or Categorical array against cache.
func EncodeCategorical(mem memory.Allocator, arr arrow.Array, cache *types.StringCache) arrow.Array {
	acc := NewAccessor(arr)

	codes := array.NewUint32Builder(mem)
	defer codes.Release()
	codes.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if acc.IsNull(i) {
			codes.AppendNull()
			continue
		}
		codes.Append(cache.Intern(acc.Str(i)))
	}
	indices := codes.NewArray()
	defer indices.Release()

	dict := cache.Dictionary(mem)
	defer dict.Release()
	return array.NewDictionaryArray(types.Categorical.ArrowType(), indices, dict)
}
