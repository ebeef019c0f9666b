// Package arrowutil contains helpers for reading, hashing, and rebuilding
// Arrow arrays of the engine's data types.
package arrowutil

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"
)

// Kind is the physical family of an array's values.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt    // Int32, Int64, Timestamp, Duration
	KindFloat  // Float64
	KindString // String, Categorical
)

// Accessor provides typed access to the values of an array without per-call
// type assertions. Accessors are cheap to copy and safe for concurrent reads.
type Accessor struct {
	arr  arrow.Array
	kind Kind

	bools   *array.Boolean
	int32s  *array.Int32
	ints    []int64 // Int64, Timestamp and Duration share a layout
	floats  *array.Float64
	strs    *array.String
	dict    *array.Dictionary
	dictStr *array.String
}

// NewAccessor returns an accessor for arr.
func NewAccessor(arr arrow.Array) Accessor {
	a := Accessor{arr: arr}
	switch arr := arr.(type) {
	case *array.Boolean:
		a.kind, a.bools = KindBool, arr
	case *array.Int32:
		a.kind, a.int32s = KindInt, arr
	case *array.Int64:
		a.kind, a.ints = KindInt, arr.Int64Values()
	case *array.Timestamp:
		a.kind = KindInt
		a.ints = timestampValues(arr)
	case *array.Duration:
		a.kind = KindInt
		a.ints = durationValues(arr)
	case *array.Float64:
		a.kind, a.floats = KindFloat, arr
	case *array.String:
		a.kind, a.strs = KindString, arr
	case *array.Dictionary:
		a.kind, a.dict = KindString, arr
		a.dictStr, _ = arr.Dictionary().(*array.String)
	default:
		a.kind = KindNull
	}
	return a
}

func timestampValues(arr *array.Timestamp) []int64 {
	vs := arr.TimestampValues()
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

func durationValues(arr *array.Duration) []int64 {
	vs := arr.DurationValues()
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

func (a *Accessor) Array() arrow.Array { return a.arr }
func (a *Accessor) Kind() Kind         { return a.kind }
func (a *Accessor) Len() int           { return a.arr.Len() }

// IsNull reports whether row i is null. Arrays of the Null type are null at
// every row.
func (a *Accessor) IsNull(i int) bool {
	return a.kind == KindNull || a.arr.IsNull(i)
}

func (a *Accessor) Bool(i int) bool {
	if a.bools != nil {
		return a.bools.Value(i)
	}
	return a.Int(i) != 0
}

// Int returns row i as int64. Booleans read as 0 and 1.
func (a *Accessor) Int(i int) int64 {
	switch {
	case a.ints != nil:
		return a.ints[i]
	case a.int32s != nil:
		return int64(a.int32s.Value(i))
	case a.bools != nil:
		if a.bools.Value(i) {
			return 1
		}
		return 0
	case a.floats != nil:
		return int64(a.floats.Value(i))
	}
	return 0
}

// Float returns row i as float64, widening integers.
func (a *Accessor) Float(i int) float64 {
	if a.floats != nil {
		return a.floats.Value(i)
	}
	return float64(a.Int(i))
}

// Str returns row i of a String or Categorical array.
func (a *Accessor) Str(i int) string {
	switch {
	case a.strs != nil:
		return a.strs.Value(i)
	case a.dict != nil && a.dictStr != nil:
		return a.dictStr.Value(a.dict.GetValueIndex(i))
	}
	return ""
}

// Value returns row i as a Go value, or nil if the row is null. Timestamps
// and durations are returned as int64 nanoseconds.
func (a *Accessor) Value(i int) any {
	if a.IsNull(i) {
		return nil
	}
	switch a.kind {
	case KindBool:
		return a.Bool(i)
	case KindInt:
		if a.int32s != nil {
			return a.int32s.Value(i)
		}
		return a.Int(i)
	case KindFloat:
		return a.Float(i)
	case KindString:
		return a.Str(i)
	}
	return nil
}

var (
	nullMarker  = []byte{0}
	valueMarker = []byte{1}
)

// Hash writes row i into d. Rows considered equal by [Accessor.Equal] hash
// identically, provided both accessors have the same Kind.
func (a *Accessor) Hash(d *xxhash.Digest, i int) {
	if a.IsNull(i) {
		_, _ = d.Write(nullMarker)
		return
	}
	_, _ = d.Write(valueMarker)

	var buf [8]byte
	switch a.kind {
	case KindBool:
		if a.Bool(i) {
			buf[0] = 1
		}
		_, _ = d.Write(buf[:1])
	case KindInt:
		binary.LittleEndian.PutUint64(buf[:], uint64(a.Int(i)))
		_, _ = d.Write(buf[:])
	case KindFloat:
		binary.LittleEndian.PutUint64(buf[:], canonicalFloatBits(a.Float(i)))
		_, _ = d.Write(buf[:])
	case KindString:
		s := a.Str(i)
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(s)
	}
}

func canonicalFloatBits(f float64) uint64 {
	switch {
	case f == 0:
		return 0 // -0 and +0 are equal
	case math.IsNaN(f):
		return 0x7ff8000000000001
	}
	return math.Float64bits(f)
}

// Equal reports whether row i of a equals row j of b. Two nulls are equal;
// NaN equals NaN.
func (a *Accessor) Equal(i int, b *Accessor, j int) bool {
	an, bn := a.IsNull(i), b.IsNull(j)
	if an || bn {
		return an && bn
	}
	return a.Compare(i, b, j) == 0
}

// Compare orders non-null row i of a against non-null row j of b. Mixed
// integer and float operands are compared as floats. NaN sorts after every
// other float.
func (a *Accessor) Compare(i int, b *Accessor, j int) int {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return cmpOrdered(a.Int(i), b.Int(j))
	case (a.kind == KindInt || a.kind == KindFloat) && (b.kind == KindInt || b.kind == KindFloat):
		return cmpFloat(a.Float(i), b.Float(j))
	case a.kind == KindString && b.kind == KindString:
		return strings.Compare(a.Str(i), b.Str(j))
	case a.kind == KindBool && b.kind == KindBool:
		return cmpOrdered(a.Int(i), b.Int(j))
	}
	return 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmpOrdered(a, b)
}
