package types

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func TestSupertype(t *testing.T) {
	for _, tt := range []struct {
		a, b     DataType
		expected DataType
		ok       bool
	}{
		{Int32, Int64, Int64, true},
		{Int64, Float64, Float64, true},
		{Int32, Float64, Float64, true},
		{Null, String, String, true},
		{Timestamp, Null, Timestamp, true},
		{Categorical, String, String, true},
		{String, Duration, Invalid, false},
		{Bool, Int64, Invalid, false},
		{Timestamp, Duration, Invalid, false},
	} {
		t.Run(fmt.Sprintf("%s,%s", tt.a, tt.b), func(t *testing.T) {
			actual, ok := Supertype(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, actual)

			// Supertype is symmetric.
			actual, ok = Supertype(tt.b, tt.a)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, actual)
		})
	}
}

func TestBinaryOpResultType(t *testing.T) {
	for _, tt := range []struct {
		op       BinaryOp
		l, r     DataType
		expected DataType
		ok       bool
	}{
		{BinaryOpAdd, Int64, Int64, Int64, true},
		{BinaryOpAdd, Int32, Int32, Int64, true},
		{BinaryOpAdd, Int64, Float64, Float64, true},
		{BinaryOpDiv, Int64, Int64, Float64, true},
		{BinaryOpSub, Timestamp, Timestamp, Duration, true},
		{BinaryOpAdd, Timestamp, Duration, Timestamp, true},
		{BinaryOpAdd, Timestamp, Timestamp, Invalid, false},
		{BinaryOpAdd, String, String, String, true},
		{BinaryOpMul, String, Int64, Invalid, false},
		{BinaryOpAdd, Bool, Bool, Invalid, false},
		{BinaryOpLt, String, Duration, Invalid, false},
		{BinaryOpLt, Int32, Float64, Bool, true},
		{BinaryOpEq, Categorical, String, Bool, true},
		{BinaryOpAnd, Bool, Bool, Bool, true},
		{BinaryOpAnd, Bool, Int64, Invalid, false},
		{BinaryOpAdd, Null, Int64, Int64, true},
	} {
		t.Run(fmt.Sprintf("%s %s %s", tt.l, tt.op, tt.r), func(t *testing.T) {
			actual, ok := tt.op.ResultType(tt.l, tt.r)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, actual)
		})
	}
}

func TestAggregationResultType(t *testing.T) {
	for _, tt := range []struct {
		agg      AggregationType
		in       DataType
		expected DataType
		ok       bool
	}{
		{AggregationTypeSum, Int32, Int64, true},
		{AggregationTypeSum, Float64, Float64, true},
		{AggregationTypeSum, String, Invalid, false},
		{AggregationTypeMean, Int64, Float64, true},
		{AggregationTypeMin, String, String, true},
		{AggregationTypeMax, Timestamp, Timestamp, true},
		{AggregationTypeCount, String, Int64, true},
		{AggregationTypeFirst, Categorical, Categorical, true},
		{AggregationTypeQuantile, Duration, Invalid, false},
	} {
		t.Run(fmt.Sprintf("%s(%s)", tt.agg, tt.in), func(t *testing.T) {
			actual, ok := tt.agg.ResultType(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, actual)
		})
	}
}

func TestLiteralString(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, tt := range []struct {
		lit      Literal
		expected string
	}{
		{NewLiteral(1), "1"},
		{NewLiteral(int32(1)), "1i32"},
		{NewLiteral(1.0), "1.0"},
		{NewLiteral(0.5), "0.5"},
		{NewLiteral("a"), `"a"`},
		{NewLiteral(true), "true"},
		{NullLiteral(), "null"},
		{TypedNull(Int64), "null::Int64"},
		{NewLiteral(ts), "2024-01-02T03:04:05Z"},
		{NewLiteral(90 * time.Second), "1m30s"},
	} {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.lit.String())
		})
	}
}

func TestLiteral_NamedTypes(t *testing.T) {
	type level string
	type count int

	require.Equal(t, String, NewLiteral(level("info")).Type())
	require.Equal(t, "info", NewLiteral(level("info")).Str())
	require.Equal(t, Int64, NewLiteral(count(3)).Type())
	require.Equal(t, int64(3), NewLiteral(count(3)).Int())
}

func TestSchema(t *testing.T) {
	s := NewSchema(Field{"id", Int64}, Field{"v", Float64})

	require.Equal(t, 1, s.Index("v"))
	require.Equal(t, -1, s.Index("missing"))
	require.Equal(t, []string{"id", "v"}, s.Names())
	require.True(t, s.Equal(NewSchema(Field{"id", Int64}, Field{"v", Float64})))
	require.False(t, s.Equal(NewSchema(Field{"v", Float64}, Field{"id", Int64})))
	require.Equal(t, "Schema:\nname: id, data type: Int64\nname: v, data type: Float64\n", s.String())

	roundTripped, err := SchemaFromArrow(s.ToArrow())
	require.NoError(t, err)
	require.True(t, s.Equal(roundTripped))
}

func TestFromArrow_Unsupported(t *testing.T) {
	_, err := FromArrow(arrow.PrimitiveTypes.Uint16)
	require.Error(t, err)
}

func TestStringCache(t *testing.T) {
	c := NewStringCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range []string{"a", "b", "c", "a"} {
				c.Intern(s)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 3, c.Len())
	id := c.Intern("b")
	s, ok := c.Lookup(id)
	require.True(t, ok)
	require.Equal(t, "b", s)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	dict := c.Dictionary(mem)
	defer dict.Release()
	require.Equal(t, 3, dict.Len())
	require.Equal(t, "b", dict.(*array.String).Value(int(id)))
}
