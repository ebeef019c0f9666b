package frame

import (
	"errors"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	engineerrors "github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

func withCheckedAllocator(t *testing.T) {
	t.Helper()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	prev := Allocator
	Allocator = mem
	t.Cleanup(func() {
		Allocator = prev
		mem.AssertSize(t, 0)
	})
}

func TestNew(t *testing.T) {
	withCheckedAllocator(t)

	f := MustNew(
		Int64s("id", 1, 2, nil),
		Strings("name", "a", nil, "c"),
		Float64s("v", 1.5, 2, nil),
	)
	defer f.Release()

	require.Equal(t, 3, f.NumRows())
	require.Equal(t, 3, f.NumCols())
	require.Equal(t, types.NewSchema(
		types.Field{Name: "id", Type: types.Int64},
		types.Field{Name: "name", Type: types.String},
		types.Field{Name: "v", Type: types.Float64},
	), f.Schema())

	require.Equal(t, [][]any{
		{int64(1), "a", 1.5},
		{int64(2), nil, 2.0},
		{nil, "c", nil},
	}, f.Rows())

	values, err := f.Values("name")
	require.NoError(t, err)
	require.Equal(t, []any{"a", nil, "c"}, values)
}

func TestNew_Errors(t *testing.T) {
	withCheckedAllocator(t)

	t.Run("duplicate names", func(t *testing.T) {
		a, b := Int64s("a", 1), Int64s("a", 2)
		defer a.Array.Release()
		defer b.Array.Release()

		_, err := New(a, b)
		require.ErrorIs(t, err, engineerrors.ErrSchema)
	})

	t.Run("length mismatch", func(t *testing.T) {
		a, b := Int64s("a", 1, 2), Int64s("b", 2)
		defer a.Array.Release()
		defer b.Array.Release()

		_, err := New(a, b)
		require.ErrorIs(t, err, engineerrors.ErrShape)

		var e *engineerrors.Error
		require.True(t, errors.As(err, &e))
		require.Equal(t, "b", e.Subject)
	})
}

func TestFrame_Column(t *testing.T) {
	withCheckedAllocator(t)

	f := MustNew(Int64s("a", 1))
	defer f.Release()

	_, err := f.Column("missing")
	require.ErrorIs(t, err, engineerrors.ErrSchema)

	col, err := f.Column("a")
	require.NoError(t, err)
	require.Equal(t, 1, col.Len())
}

func TestFrame_CloneSharesColumns(t *testing.T) {
	withCheckedAllocator(t)

	f := MustNew(Int64s("a", 1, 2, 3))
	clone := f.Clone()

	// Both frames point at the same arrays.
	require.Same(t, f.Record(), clone.Record())

	f.Release()
	values, err := clone.Values("a")
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), int64(2), int64(3)}, values)
	clone.Release()
}

func TestTemporalColumns(t *testing.T) {
	withCheckedAllocator(t)

	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f := MustNew(
		Timestamps("ts", ts, nil),
		Durations("d", time.Second, int64(5)),
	)
	defer f.Release()

	require.Equal(t, [][]any{
		{ts.UnixNano(), int64(time.Second)},
		{nil, int64(5)},
	}, f.Rows())
}

func TestCategoricalColumn(t *testing.T) {
	withCheckedAllocator(t)

	col, err := NewColumn("c", types.Categorical, "x", "y", nil, "x")
	require.NoError(t, err)
	f := MustNew(col)
	defer f.Release()

	require.Equal(t, types.Categorical, f.Schema().Fields[0].Type)
	values, err := f.Values("c")
	require.NoError(t, err)
	require.Equal(t, []any{"x", "y", nil, "x"}, values)
}

func TestEmpty(t *testing.T) {
	withCheckedAllocator(t)

	schema := types.NewSchema(types.Field{Name: "a", Type: types.Int64}, types.Field{Name: "b", Type: types.String})
	f := Empty(Allocator, schema)
	defer f.Release()

	require.Equal(t, 0, f.NumRows())
	require.True(t, schema.Equal(f.Schema()))
}
