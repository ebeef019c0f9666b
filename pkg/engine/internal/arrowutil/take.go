package arrowutil

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type appender[T any] interface {
	Append(T)
	AppendNull()
	Reserve(int)
	NewArray() arrow.Array
	Release()
}

func takeValues[T any](b appender[T], arr arrow.Array, value func(int) T, indices []int) arrow.Array {
	defer b.Release()
	b.Reserve(len(indices))
	for _, idx := range indices {
		if idx < 0 || arr.IsNull(idx) {
			b.AppendNull()
			continue
		}
		b.Append(value(idx))
	}
	return b.NewArray()
}

// Take returns a new array with the rows of arr at the given positions, in
// order. A negative position produces a null row.
func Take(mem memory.Allocator, arr arrow.Array, indices []int) arrow.Array {
	switch arr := arr.(type) {
	case *array.Null:
		return array.NewNull(len(indices))
	case *array.Boolean:
		return takeValues[bool](array.NewBooleanBuilder(mem), arr, arr.Value, indices)
	case *array.Int32:
		return takeValues[int32](array.NewInt32Builder(mem), arr, arr.Value, indices)
	case *array.Int64:
		return takeValues[int64](array.NewInt64Builder(mem), arr, arr.Value, indices)
	case *array.Float64:
		return takeValues[float64](array.NewFloat64Builder(mem), arr, arr.Value, indices)
	case *array.String:
		return takeValues[string](array.NewStringBuilder(mem), arr, arr.Value, indices)
	case *array.Timestamp:
		b := array.NewTimestampBuilder(mem, arr.DataType().(*arrow.TimestampType))
		return takeValues[arrow.Timestamp](b, arr, arr.Value, indices)
	case *array.Duration:
		b := array.NewDurationBuilder(mem, arr.DataType().(*arrow.DurationType))
		return takeValues[arrow.Duration](b, arr, arr.Value, indices)
	case *array.Dictionary:
		codes := arr.Indices().(*array.Uint32)
		taken := takeValues[uint32](array.NewUint32Builder(mem), codes, codes.Value, indices)
		defer taken.Release()
		return array.NewDictionaryArray(arr.DataType(), taken, arr.Dictionary())
	}
	panic(fmt.Sprintf("arrowutil.Take: unsupported array type %s", arr.DataType()))
}

// TakeRecord applies [Take] to every column of rec.
func TakeRecord(mem memory.Allocator, rec arrow.Record, indices []int) arrow.Record {
	cols := make([]arrow.Array, rec.NumCols())
	for i := range cols {
		cols[i] = Take(mem, rec.Column(i), indices)
	}
	defer releaseAll(cols)
	return array.NewRecord(rec.Schema(), cols, int64(len(indices)))
}

// Range returns the positions [lo, hi).
func Range(lo, hi int) []int {
	out := make([]int, hi-lo)
	for i := range out {
		out[i] = lo + i
	}
	return out
}

func releaseAll(arrs []arrow.Array) {
	for _, a := range arrs {
		if a != nil {
			a.Release()
		}
	}
}
