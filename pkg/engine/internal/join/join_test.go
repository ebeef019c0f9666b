package join

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

func ints(t *testing.T, mem memory.Allocator, values ...any) arrow.Array {
	t.Helper()
	arr, err := arrowutil.FromValues(mem, types.Int64, values, nil)
	require.NoError(t, err)
	t.Cleanup(arr.Release)
	return arr
}

func input(arr arrow.Array) Input {
	return Input{Keys: []arrow.Array{arr}, Rows: arr.Len()}
}

func TestHash(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	var (
		// Left is larger than right so the table is built on the right.
		left  = ints(t, mem, int64(1), int64(2), nil, int64(2), int64(4))
		right = ints(t, mem, int64(2), int64(3), int64(2), nil)
	)

	for _, tt := range []struct {
		name      string
		typ       types.JoinType
		joinNulls bool
		expect    Indices
	}{
		{
			name:   "inner",
			typ:    types.JoinTypeInner,
			expect: Indices{Left: []int{1, 1, 3, 3}, Right: []int{0, 2, 0, 2}},
		},
		{
			name:   "left",
			typ:    types.JoinTypeLeft,
			expect: Indices{Left: []int{0, 1, 1, 2, 3, 3, 4}, Right: []int{-1, 0, 2, -1, 0, 2, -1}},
		},
		{
			name:   "outer",
			typ:    types.JoinTypeOuter,
			expect: Indices{Left: []int{0, 1, 1, 2, 3, 3, 4, -1, -1}, Right: []int{-1, 0, 2, -1, 0, 2, -1, 1, 3}},
		},
		{
			name:   "semi",
			typ:    types.JoinTypeSemi,
			expect: Indices{Left: []int{1, 3}},
		},
		{
			name:   "anti",
			typ:    types.JoinTypeAnti,
			expect: Indices{Left: []int{0, 2, 4}},
		},
		{
			name:      "inner join nulls",
			typ:       types.JoinTypeInner,
			joinNulls: true,
			expect:    Indices{Left: []int{1, 1, 2, 3, 3}, Right: []int{0, 2, 3, 0, 2}},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hash(context.Background(), workers.New(2, 2), input(left), input(right), Options{Type: tt.typ, JoinNulls: tt.joinNulls})
			require.NoError(t, err)
			require.Equal(t, tt.expect, got)
		})
	}
}

func TestHash_BuildOnSmallerLeft(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	left := ints(t, mem, int64(1), int64(2))
	right := ints(t, mem, int64(2), int64(3), int64(2), int64(1), int64(9))

	got, err := Hash(context.Background(), workers.New(4, 1), input(left), input(right), Options{Type: types.JoinTypeLeft})
	require.NoError(t, err)
	require.Equal(t, Indices{Left: []int{0, 1, 1}, Right: []int{3, 0, 2}}, got)

	got, err = Hash(context.Background(), workers.New(4, 1), input(left), input(right), Options{Type: types.JoinTypeOuter})
	require.NoError(t, err)
	require.Equal(t, Indices{Left: []int{0, 1, 1, -1, -1}, Right: []int{3, 0, 2, 1, 4}}, got)
}

func TestHash_LeftJoinExample(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	a := ints(t, mem, int64(1), int64(2))
	b := ints(t, mem, int64(2), int64(3))

	got, err := Hash(context.Background(), workers.New(1, 0), input(a), input(b), Options{Type: types.JoinTypeLeft})
	require.NoError(t, err)
	require.Equal(t, Indices{Left: []int{0, 1}, Right: []int{-1, 0}}, got)
}

func TestValidate(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	unique := ints(t, mem, int64(1), int64(2), nil, nil)
	dup := ints(t, mem, int64(1), int64(1), int64(2))

	for _, tt := range []struct {
		v           types.JoinValidation
		left, right arrow.Array
		joinNulls   bool
		fail        bool
	}{
		{v: types.ValidateManyToMany, left: dup, right: dup},
		{v: types.ValidateOneToOne, left: unique, right: unique},
		{v: types.ValidateOneToOne, left: unique, right: unique, joinNulls: true, fail: true},
		{v: types.ValidateOneToOne, left: unique, right: dup, fail: true},
		{v: types.ValidateOneToMany, left: unique, right: dup},
		{v: types.ValidateOneToMany, left: dup, right: unique, fail: true},
		{v: types.ValidateManyToOne, left: dup, right: unique},
		{v: types.ValidateManyToOne, left: unique, right: dup, fail: true},
	} {
		t.Run(tt.v.String(), func(t *testing.T) {
			_, err := Hash(context.Background(), workers.New(1, 0), input(tt.left), input(tt.right), Options{
				Type:      types.JoinTypeInner,
				Validate:  tt.v,
				JoinNulls: tt.joinNulls,
			})
			if tt.fail {
				require.ErrorIs(t, err, errors.ErrJoinValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCross(t *testing.T) {
	got, err := Cross(2, 3, 0)
	require.NoError(t, err)
	require.Equal(t, 6, got.Len())
	require.Equal(t, []int{0, 0, 0, 1, 1, 1}, got.Left)
	require.Equal(t, []int{0, 1, 2, 0, 1, 2}, got.Right)

	_, err = Cross(2, 3, 5)
	require.ErrorIs(t, err, errors.ErrCompute)
}

func TestAsOf(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	left := ints(t, mem, int64(1), int64(5), int64(10), nil, int64(20))
	right := ints(t, mem, int64(2), int64(5), int64(5), int64(12))

	for _, tt := range []struct {
		name   string
		opts   AsOfOptions
		expect []int
	}{
		{"backward", AsOfOptions{Strategy: types.AsOfBackward}, []int{-1, 2, 2, -1, 3}},
		{"forward", AsOfOptions{Strategy: types.AsOfForward}, []int{0, 1, 3, -1, -1}},
		{"nearest", AsOfOptions{Strategy: types.AsOfNearest}, []int{0, 2, 3, -1, 3}},
		{"tolerance", AsOfOptions{Strategy: types.AsOfNearest, Tolerance: 2, HasTolerance: true}, []int{0, 2, 3, -1, -1}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AsOf(context.Background(), workers.New(2, 2),
				AsOfInput{On: left, Rows: left.Len()},
				AsOfInput{On: right, Rows: right.Len()},
				tt.opts,
			)
			require.NoError(t, err)
			require.Equal(t, tt.expect, got)
		})
	}
}

func TestAsOf_NearestTieIsBackward(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	left := ints(t, mem, int64(5))
	right := ints(t, mem, int64(4), int64(6))

	got, err := AsOf(context.Background(), workers.New(1, 0),
		AsOfInput{On: left, Rows: 1}, AsOfInput{On: right, Rows: 2},
		AsOfOptions{Strategy: types.AsOfNearest})
	require.NoError(t, err)
	require.Equal(t, []int{0}, got)
}

func TestAsOf_By(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	var (
		leftOn   = ints(t, mem, int64(3), int64(3), int64(3))
		leftBy   = ints(t, mem, int64(1), int64(2), int64(3))
		rightOn  = ints(t, mem, int64(1), int64(2), int64(3), int64(4))
		rightBy  = ints(t, mem, int64(2), int64(1), int64(2), int64(1))
		expected = []int{1, 2, -1}
	)

	got, err := AsOf(context.Background(), workers.New(1, 0),
		AsOfInput{On: leftOn, By: []arrow.Array{leftBy}, Rows: 3},
		AsOfInput{On: rightOn, By: []arrow.Array{rightBy}, Rows: 4},
		AsOfOptions{Strategy: types.AsOfBackward})
	require.NoError(t, err)
	require.Equal(t, expected, got)
}

func TestAsOf_Unsorted(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })

	sorted := ints(t, mem, int64(1), nil, int64(1), int64(3))
	unsorted := ints(t, mem, int64(1), int64(3), int64(2))

	_, err := AsOf(context.Background(), workers.New(1, 0),
		AsOfInput{On: sorted, Rows: 4}, AsOfInput{On: sorted, Rows: 4},
		AsOfOptions{})
	require.NoError(t, err, "null keys are skipped by the order check")

	_, err = AsOf(context.Background(), workers.New(1, 0),
		AsOfInput{On: sorted, Rows: 4}, AsOfInput{On: unsorted, Rows: 3},
		AsOfOptions{RightName: "t"})
	require.ErrorIs(t, err, errors.ErrOrder)
	require.Contains(t, err.Error(), "t")
}

func TestLayout(t *testing.T) {
	left := types.NewSchema(
		types.Field{Name: "k", Type: types.Int64},
		types.Field{Name: "x", Type: types.String},
	)
	right := types.NewSchema(
		types.Field{Name: "k", Type: types.Int32},
		types.Field{Name: "x", Type: types.Float64},
		types.Field{Name: "y", Type: types.Bool},
	)
	keys := []KeyPair{{Left: "k", Right: "k"}}

	t.Run("inner drops right key", func(t *testing.T) {
		cols, err := Layout(left, right, LayoutOptions{Type: types.JoinTypeInner, Keys: keys})
		require.NoError(t, err)
		require.Equal(t, []string{"k", "x", "x_right", "y"}, Schema(cols).Names())
	})

	t.Run("outer keeps right key", func(t *testing.T) {
		cols, err := Layout(left, right, LayoutOptions{Type: types.JoinTypeOuter, Keys: keys, Suffix: "_r"})
		require.NoError(t, err)
		require.Equal(t, []string{"k", "x", "k_r", "x_r", "y"}, Schema(cols).Names())
	})

	t.Run("outer coalesces keys", func(t *testing.T) {
		cols, err := Layout(left, right, LayoutOptions{Type: types.JoinTypeOuter, Keys: keys, Coalesce: true})
		require.NoError(t, err)
		require.Equal(t, []string{"k", "x", "x_right", "y"}, Schema(cols).Names())
		require.Equal(t, 0, cols[0].CoalesceIndex)
		require.Equal(t, types.Int64, cols[0].Type)
	})

	t.Run("semi", func(t *testing.T) {
		cols, err := Layout(left, right, LayoutOptions{Type: types.JoinTypeSemi, Keys: keys})
		require.NoError(t, err)
		require.Equal(t, []string{"k", "x"}, Schema(cols).Names())
	})

	t.Run("cross keeps every column", func(t *testing.T) {
		cols, err := Layout(left, right, LayoutOptions{Type: types.JoinTypeCross})
		require.NoError(t, err)
		require.Equal(t, []string{"k", "x", "k_right", "x_right", "y"}, Schema(cols).Names())
	})

	t.Run("suffix collision", func(t *testing.T) {
		clash := types.NewSchema(
			types.Field{Name: "x", Type: types.Int64},
			types.Field{Name: "x_right", Type: types.Int64},
		)
		_, err := Layout(clash, clash, LayoutOptions{Type: types.JoinTypeCross})
		require.ErrorIs(t, err, errors.ErrSchema)
	})
}
