package executor

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JacekPliszka/polars/pkg/engine/frame"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/planner/physical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func collectContext(ctx context.Context, t *testing.T, df *logical.DataFrame, cfg Config) (*frame.Frame, error) {
	t.Helper()

	lp, err := logical.Optimize(df.Plan(), logical.DefaultOptimizerOptions())
	require.NoError(t, err)
	planner := physical.NewPlanner()
	plan, err := planner.Build(lp)
	require.NoError(t, err)
	plan, err = planner.Optimize(plan)
	require.NoError(t, err)
	root, err := plan.Root()
	require.NoError(t, err)

	pipeline := Run(ctx, cfg, plan, log.NewNopLogger())
	defer pipeline.Close()

	rec, err := ReadAll(ctx, pipeline, memory.DefaultAllocator, root.Schema().ToArrow())
	if err != nil {
		return nil, err
	}
	return frame.FromRecord(rec)
}

func collect(t *testing.T, df *logical.DataFrame, cfg Config) (*frame.Frame, error) {
	t.Helper()
	return collectContext(context.Background(), t, df, cfg)
}

func mustCollect(t *testing.T, df *logical.DataFrame, cfg Config) *frame.Frame {
	t.Helper()
	f, err := collect(t, df, cfg)
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

func requireValues(t *testing.T, f *frame.Frame, name string, expect ...any) {
	t.Helper()
	vals, err := f.Values(name)
	require.NoError(t, err)
	require.Equal(t, expect, vals, "column %s", name)
}

func TestExecutor_GroupBySum(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("id", 1, 2, 3, 2),
		frame.Int64s("v", 10, 20, 40, 30),
	))

	for _, tt := range []struct {
		name string
		df   *logical.DataFrame
	}{
		{name: "hash", df: df},
		{name: "sorted", df: logical.FromFrame("t", frame.MustNew(
			frame.Int64s("id", 1, 2, 2, 3),
			frame.Int64s("v", 10, 20, 30, 40),
		), logical.WithSortedBy("id"))},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := mustCollect(t, tt.df.GroupBy(logical.Col("id")).Agg(logical.Alias(logical.Sum(logical.Col("v")), "v")), Config{})
			requireValues(t, out, "id", int64(1), int64(2), int64(3))
			requireValues(t, out, "v", int64(10), int64(50), int64(40))
		})
	}
}

func TestExecutor_AggregateFunctions(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Strings("g", "a", "b", "a", "a"),
		frame.Int64s("v", 1, 4, nil, 3),
	))
	out := mustCollect(t, df.GroupBy(logical.Col("g")).Agg(
		logical.Alias(logical.Mean(logical.Col("v")), "mean"),
		logical.Alias(logical.Count(logical.Col("v")), "count"),
		logical.Alias(logical.Len(logical.Col("v")), "len"),
		logical.Alias(logical.Maximum(logical.Col("v")), "max"),
		logical.Alias(logical.First(logical.Col("v")), "first"),
	), Config{})

	requireValues(t, out, "g", "a", "b")
	requireValues(t, out, "mean", 2.0, 4.0)
	requireValues(t, out, "count", int64(2), int64(1))
	requireValues(t, out, "len", int64(3), int64(1))
	requireValues(t, out, "max", int64(3), int64(4))
	requireValues(t, out, "first", int64(1), int64(4))
}

func TestExecutor_GlobalAggregateOverEmptyInput(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(frame.Int64s("v", 1, 2)))
	out := mustCollect(t, df.Filter(logical.Gt(logical.Col("v"), logical.Lit[int64](5))).
		Select(logical.Alias(logical.Sum(logical.Col("v")), "s"), logical.Alias(logical.Len(logical.Col("v")), "n")), Config{})

	requireValues(t, out, "s", int64(0))
	requireValues(t, out, "n", int64(0))
}

func TestExecutor_SumNullPolicy(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("g", 1, 1, 2),
		frame.Int64s("v", nil, nil, 5),
	)).GroupBy(logical.Col("g")).Agg(logical.Alias(logical.Sum(logical.Col("v")), "s"))

	for _, tt := range []struct {
		policy types.SumNullPolicy
		expect []any
	}{
		{policy: types.SumNullAsZero, expect: []any{int64(0), int64(5)}},
		{policy: types.SumNullAsNull, expect: []any{nil, int64(5)}},
	} {
		t.Run(tt.policy.String(), func(t *testing.T) {
			out := mustCollect(t, df, Config{SumNullPolicy: tt.policy})
			requireValues(t, out, "s", tt.expect...)
		})
	}
}

func TestExecutor_Expressions(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("x", -7, 7, nil),
		frame.Float64s("f", 1.25, -2.5, 3.0),
		frame.Bools("a", true, nil, false),
		frame.Bools("b", nil, false, nil),
		frame.Strings("s", "p", "q", nil),
	))

	for _, tt := range []struct {
		name   string
		expr   logical.Expr
		expect []any
	}{
		{name: "floored modulo", expr: logical.Mod(logical.Col("x"), logical.Lit[int64](3)), expect: []any{int64(2), int64(1), nil}},
		{name: "integer division", expr: logical.Div(logical.Col("x"), logical.Lit[int64](2)), expect: []any{-3.5, 3.5, nil}},
		{name: "mixed arithmetic", expr: logical.Add(logical.Col("x"), logical.Col("f")), expect: []any{-5.75, 4.5, nil}},
		{name: "kleene or", expr: logical.Or(logical.Col("a"), logical.Col("b")), expect: []any{true, nil, nil}},
		{name: "kleene and", expr: logical.And(logical.Col("a"), logical.Col("b")), expect: []any{nil, false, false}},
		{name: "comparison", expr: logical.Gt(logical.Col("x"), logical.Lit[int64](0)), expect: []any{false, true, nil}},
		{name: "is null", expr: logical.IsNull(logical.Col("x")), expect: []any{false, false, true}},
		{name: "negate", expr: logical.Neg(logical.Col("x")), expect: []any{int64(7), int64(-7), nil}},
		{name: "abs", expr: logical.Abs(logical.Col("x")), expect: []any{int64(7), int64(7), nil}},
		{name: "round", expr: logical.Round(logical.Col("f"), 0), expect: []any{1.0, -3.0, 3.0}},
		{name: "concat", expr: logical.Add(logical.Col("s"), logical.Lit("!")), expect: []any{"p!", "q!", nil}},
		{name: "fill null", expr: logical.FillNull(logical.Col("x"), logical.Lit[int64](0)), expect: []any{int64(-7), int64(7), int64(0)}},
		{name: "coalesce", expr: logical.Coalesce(logical.Col("b"), logical.Col("a")), expect: []any{true, false, false}},
		{name: "cast", expr: logical.Cast(logical.Col("x"), types.String), expect: []any{"-7", "7", nil}},
		{name: "contains", expr: logical.Contains(logical.Col("s"), "^p|z"), expect: []any{true, false, nil}},
		{name: "contains categorical", expr: logical.Contains(logical.Cast(logical.Col("s"), types.Categorical), "q"), expect: []any{false, true, nil}},
		{
			name:   "conditional",
			expr:   logical.When(logical.Gt(logical.Col("x"), logical.Lit[int64](0)), logical.Lit("pos")).Else(logical.Lit("neg")),
			expect: []any{"neg", "pos", "neg"},
		},
		{
			name:   "conditional without otherwise",
			expr:   logical.When(logical.Gt(logical.Col("x"), logical.Lit[int64](0)), logical.Lit("pos")),
			expect: []any{nil, "pos", nil},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := mustCollect(t, df.Select(logical.Alias(tt.expr, "out")), Config{})
			requireValues(t, out, "out", tt.expect...)
		})
	}
}

func TestExecutor_ChunkedEvaluation(t *testing.T) {
	vals := make([]any, 11)
	expect := make([]any, 11)
	for i := range vals {
		vals[i] = int64(i)
		expect[i] = int64(i * 3)
	}
	df := logical.FromFrame("t", frame.MustNew(frame.Int64s("v", vals...)))

	out := mustCollect(t, df.Select(logical.Alias(logical.Mul(logical.Col("v"), logical.Lit[int64](3)), "v3")), Config{
		Pool:      workers.New(4, 2),
		BatchSize: 100,
	})
	requireValues(t, out, "v3", expect...)
}

func TestExecutor_ComputeErrors(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("x", 1, 0),
		frame.Strings("s", "1", "x"),
	))

	for _, tt := range []struct {
		name   string
		expr   logical.Expr
		kind   error
		expect []any
	}{
		{name: "overflow", expr: logical.Add(logical.Col("x"), logical.Lit[int64](math.MaxInt64)), kind: errors.ErrCompute},
		{name: "modulo by zero", expr: logical.Mod(logical.Lit[int64](5), logical.Col("x")), kind: errors.ErrCompute},
		{name: "strict cast", expr: logical.StrictCast(logical.Col("s"), types.Int64), kind: errors.ErrDataType},
		{name: "lenient cast", expr: logical.Cast(logical.Col("s"), types.Int64), expect: []any{int64(1), nil}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out, err := collect(t, df.Select(logical.Alias(tt.expr, "out")), Config{})
			if tt.kind != nil {
				require.ErrorIs(t, err, tt.kind)
				return
			}
			require.NoError(t, err)
			defer out.Release()
			requireValues(t, out, "out", tt.expect...)
		})
	}
}

func TestExecutor_FilterAndProject(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("id", 1, 2, 3, 4),
		frame.Int64s("v", 10, nil, 30, 40),
		frame.Strings("s", "a", "b", "c", "d"),
	))

	t.Run("filter treats null as false", func(t *testing.T) {
		out := mustCollect(t, df.Filter(logical.Gt(logical.Col("v"), logical.Lit[int64](15))), Config{BatchSize: 1})
		requireValues(t, out, "id", int64(3), int64(4))
	})

	t.Run("with columns", func(t *testing.T) {
		out := mustCollect(t, df.WithColumns(logical.Alias(logical.Mul(logical.Col("v"), logical.Lit[int64](2)), "v2")), Config{})
		require.Equal(t, []string{"id", "v", "s", "v2"}, out.Schema().Names())
		requireValues(t, out, "v2", int64(20), nil, int64(60), int64(80))
	})

	t.Run("drop", func(t *testing.T) {
		out := mustCollect(t, df.Drop("v"), Config{})
		require.Equal(t, []string{"id", "s"}, out.Schema().Names())
	})

	t.Run("filter on aggregate", func(t *testing.T) {
		out := mustCollect(t, df.Filter(logical.Gt(logical.Col("v"), logical.Mean(logical.Col("v")))), Config{BatchSize: 2})
		requireValues(t, out, "s", "c", "d")
	})

	t.Run("broadcast aggregate", func(t *testing.T) {
		out := mustCollect(t, df.Select(logical.Col("id"), logical.Alias(logical.Maximum(logical.Col("v")), "max")), Config{})
		requireValues(t, out, "max", int64(40), int64(40), int64(40), int64(40))
	})
}

func TestExecutor_Window(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Strings("g", "a", "b", "a", "b"),
		frame.Int64s("v", 1, 2, 3, 4),
	))

	out := mustCollect(t, df.WithColumns(
		logical.Alias(logical.Over(logical.Sum(logical.Col("v")), logical.Col("g")), "total"),
		logical.Alias(logical.Over(logical.CumSum(logical.Col("v")), logical.Col("g")), "running"),
		logical.Alias(logical.Over(logical.Shift(logical.Col("v"), 1), logical.Col("g")), "prev"),
	), Config{})

	requireValues(t, out, "total", int64(4), int64(6), int64(4), int64(6))
	requireValues(t, out, "running", int64(1), int64(2), int64(4), int64(6))
	requireValues(t, out, "prev", nil, nil, int64(1), int64(2))
}

func TestExecutor_Sort(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("v", 3, nil, 1, 2),
	))

	for _, tt := range []struct {
		name   string
		df     *logical.DataFrame
		expect []any
	}{
		{name: "ascending nulls first", df: df.SortBy("v"), expect: []any{nil, int64(1), int64(2), int64(3)}},
		{name: "descending nulls last", df: df.Sort(logical.Desc(logical.Col("v"))), expect: []any{int64(3), int64(2), int64(1), nil}},
		{name: "top k", df: df.Sort(logical.Desc(logical.Col("v"))).Limit(2), expect: []any{int64(3), int64(2)}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := mustCollect(t, tt.df, Config{BatchSize: 1})
			requireValues(t, out, "v", tt.expect...)
		})
	}
}

func TestExecutor_Slice(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(frame.Int64s("v", 1, 2, 3, 4, 5)))

	for _, batchSize := range []int{1, 2, 10} {
		out := mustCollect(t, df.Slice(1, 3), Config{BatchSize: batchSize})
		requireValues(t, out, "v", int64(2), int64(3), int64(4))
	}

	out := mustCollect(t, df.Limit(0), Config{})
	require.Equal(t, 0, out.NumRows())
}

func TestExecutor_Union(t *testing.T) {
	a := logical.FromFrame("a", frame.MustNew(frame.Int64s("v", 1, 2)))
	b := logical.FromFrame("b", frame.MustNew(frame.Int64s("v", 3)))
	c := logical.FromFrame("c", frame.MustNew(frame.Int64s("v", 4, 5)))

	for _, prefetch := range []bool{false, true} {
		out := mustCollect(t, a.Union(b, c), Config{PrefetchInputs: prefetch, BatchSize: 1})
		requireValues(t, out, "v", int64(1), int64(2), int64(3), int64(4), int64(5))
	}
}

func TestExecutor_Distinct(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("k", 2, 1, 2, 1),
		frame.Strings("s", "a", "b", "a", "c"),
	))

	out := mustCollect(t, df.Unique("k"), Config{})
	require.Equal(t, [][]any{{int64(2), "a"}, {int64(1), "b"}}, out.Rows())

	out = mustCollect(t, df.Unique(), Config{})
	require.Equal(t, [][]any{{int64(2), "a"}, {int64(1), "b"}, {int64(1), "c"}}, out.Rows())
}

func TestExecutor_Joins(t *testing.T) {
	left := logical.FromFrame("left", frame.MustNew(
		frame.Int64s("k", 1, 2, 3),
		frame.Strings("a", "x", "y", "z"),
	))
	right := logical.FromFrame("right", frame.MustNew(
		frame.Int64s("k", 3, 1, 4),
		frame.Int64s("b", 30, 10, 40),
	))

	for _, tt := range []struct {
		name   string
		df     *logical.DataFrame
		expect [][]any
	}{
		{
			name:   "inner",
			df:     left.JoinOn(right, types.JoinTypeInner, "k"),
			expect: [][]any{{int64(1), "x", int64(10)}, {int64(3), "z", int64(30)}},
		},
		{
			name:   "left",
			df:     left.JoinOn(right, types.JoinTypeLeft, "k"),
			expect: [][]any{{int64(1), "x", int64(10)}, {int64(2), "y", nil}, {int64(3), "z", int64(30)}},
		},
		{
			name: "outer coalesced",
			df: left.Join(right, logical.JoinOptions{
				Type:     types.JoinTypeOuter,
				LeftOn:   logical.Cols("k"),
				RightOn:  logical.Cols("k"),
				Coalesce: true,
			}),
			expect: [][]any{
				{int64(1), "x", int64(10)},
				{int64(2), "y", nil},
				{int64(3), "z", int64(30)},
				{int64(4), nil, int64(40)},
			},
		},
		{
			name: "outer",
			df:   left.JoinOn(right, types.JoinTypeOuter, "k"),
			expect: [][]any{
				{int64(1), "x", int64(1), int64(10)},
				{int64(2), "y", nil, nil},
				{int64(3), "z", int64(3), int64(30)},
				{nil, nil, int64(4), int64(40)},
			},
		},
		{
			name:   "semi",
			df:     left.JoinOn(right, types.JoinTypeSemi, "k"),
			expect: [][]any{{int64(1), "x"}, {int64(3), "z"}},
		},
		{
			name:   "anti",
			df:     left.JoinOn(right, types.JoinTypeAnti, "k"),
			expect: [][]any{{int64(2), "y"}},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := mustCollect(t, tt.df, Config{})
			require.Equal(t, tt.expect, out.Rows())
		})
	}
}

func TestExecutor_LeftJoinWithNulls(t *testing.T) {
	a := logical.FromFrame("a", frame.MustNew(frame.Int64s("k", 1, 2)))
	b := logical.FromFrame("b", frame.MustNew(
		frame.Int64s("k", 2, 3),
		frame.Int64s("x", 9, 8),
	))

	out := mustCollect(t, a.JoinOn(b, types.JoinTypeLeft, "k"), Config{})
	require.Equal(t, []string{"k", "x"}, out.Schema().Names())
	require.Equal(t, [][]any{{int64(1), nil}, {int64(2), int64(9)}}, out.Rows())
}

func TestExecutor_JoinSuffix(t *testing.T) {
	a := logical.FromFrame("a", frame.MustNew(frame.Int64s("k", 1), frame.Strings("v", "l")))
	b := logical.FromFrame("b", frame.MustNew(frame.Int64s("k", 1), frame.Strings("v", "r")))

	out := mustCollect(t, a.Join(b, logical.JoinOptions{
		Type:    types.JoinTypeInner,
		LeftOn:  logical.Cols("k"),
		RightOn: logical.Cols("k"),
		Suffix:  "_b",
	}), Config{})
	require.Equal(t, []string{"k", "v", "v_b"}, out.Schema().Names())
	require.Equal(t, [][]any{{int64(1), "l", "r"}}, out.Rows())
}

func TestExecutor_JoinValidation(t *testing.T) {
	a := logical.FromFrame("a", frame.MustNew(frame.Int64s("k", 1, 2)))
	b := logical.FromFrame("b", frame.MustNew(frame.Int64s("k", 1, 1)))

	_, err := collect(t, a.Join(b, logical.JoinOptions{
		Type:     types.JoinTypeInner,
		LeftOn:   logical.Cols("k"),
		RightOn:  logical.Cols("k"),
		Validate: types.ValidateOneToOne,
	}), Config{})
	require.ErrorIs(t, err, errors.ErrJoinValidation)

	out := mustCollect(t, a.Join(b, logical.JoinOptions{
		Type:     types.JoinTypeInner,
		LeftOn:   logical.Cols("k"),
		RightOn:  logical.Cols("k"),
		Validate: types.ValidateOneToMany,
	}), Config{})
	require.Equal(t, 2, out.NumRows())
}

func TestExecutor_AsOfJoin(t *testing.T) {
	left := logical.FromFrame("left", frame.MustNew(frame.Int64s("t", 1, 5, 10)))
	right := logical.FromFrame("right", frame.MustNew(
		frame.Int64s("rt", 2, 4, 8),
		frame.Int64s("v", 20, 40, 80),
	))

	for _, tt := range []struct {
		name   string
		opts   logical.AsOfOptions
		expect []any
	}{
		{name: "backward", opts: logical.AsOfOptions{Strategy: types.AsOfBackward}, expect: []any{nil, int64(40), int64(80)}},
		{name: "forward", opts: logical.AsOfOptions{Strategy: types.AsOfForward}, expect: []any{int64(20), int64(80), nil}},
		{name: "nearest", opts: logical.AsOfOptions{Strategy: types.AsOfNearest}, expect: []any{int64(20), int64(40), int64(80)}},
		{
			name:   "tolerance",
			opts:   logical.AsOfOptions{Strategy: types.AsOfBackward, Tolerance: 1, HasTolerance: true},
			expect: []any{nil, int64(40), nil},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			out := mustCollect(t, left.JoinAsOf(right, "t", "rt", tt.opts), Config{})
			requireValues(t, out, "t", int64(1), int64(5), int64(10))
			requireValues(t, out, "v", tt.expect...)
		})
	}

	t.Run("unsorted keys", func(t *testing.T) {
		unsorted := logical.FromFrame("right", frame.MustNew(
			frame.Int64s("rt", 4, 2),
			frame.Int64s("v", 40, 20),
		))
		_, err := collect(t, left.JoinAsOf(unsorted, "t", "rt", logical.AsOfOptions{}), Config{})
		require.ErrorIs(t, err, errors.ErrOrder)
	})

	t.Run("unsorted left keys removed by a later filter", func(t *testing.T) {
		unsorted := logical.FromFrame("left", frame.MustNew(frame.Int64s("t", 5, 1)))
		df := unsorted.JoinAsOf(right, "t", "rt", logical.AsOfOptions{}).
			Filter(logical.Gt(logical.Col("t"), logical.Lit[int64](2)))
		_, err := collect(t, df, Config{})
		require.ErrorIs(t, err, errors.ErrOrder)
	})
}

func TestExecutor_CrossJoin(t *testing.T) {
	a := logical.FromFrame("a", frame.MustNew(frame.Int64s("a", 1, 2)))
	b := logical.FromFrame("b", frame.MustNew(frame.Strings("b", "x", "y", "z")))

	out := mustCollect(t, a.CrossJoin(b), Config{})
	require.Equal(t, 6, out.NumRows())
	require.Equal(t, [][]any{
		{int64(1), "x"}, {int64(1), "y"}, {int64(1), "z"},
		{int64(2), "x"}, {int64(2), "y"}, {int64(2), "z"},
	}, out.Rows())

	_, err := collect(t, a.CrossJoin(b), Config{MaxCrossJoinRows: 5})
	require.ErrorIs(t, err, errors.ErrCompute)
}

func TestExecutor_MultipleBatches(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Int64s("id", 1, 2, 1, 2, 3),
		frame.Int64s("v", 1, 2, 3, 4, 5),
	))
	empty := df.Filter(logical.Gt(logical.Col("v"), logical.Lit[int64](10)))

	for _, tt := range []struct {
		name   string
		df     *logical.DataFrame
		column string
		expect []any
	}{
		{
			name:   "group by",
			df:     df.GroupBy(logical.Col("id")).Agg(logical.Alias(logical.Sum(logical.Col("v")), "total")),
			column: "total",
			expect: []any{int64(4), int64(6), int64(5)},
		},
		{
			name:   "window",
			df:     df.WithColumns(logical.Alias(logical.Over(logical.Sum(logical.Col("v")), logical.Col("id")), "total")),
			column: "total",
			expect: []any{int64(4), int64(6), int64(4), int64(6), int64(5)},
		},
		{
			name:   "projection against aggregate",
			df:     df.Select(logical.Alias(logical.Sub(logical.Col("v"), logical.Mean(logical.Col("v"))), "d")),
			column: "d",
			expect: []any{-2.0, -1.0, 0.0, 1.0, 2.0},
		},
		{
			name:   "filter against aggregate",
			df:     df.Filter(logical.Gt(logical.Col("v"), logical.Mean(logical.Col("v")))),
			column: "id",
			expect: []any{int64(2), int64(3)},
		},
		{
			name:   "sort",
			df:     df.Sort(logical.Desc(logical.Col("v"))),
			column: "id",
			expect: []any{int64(3), int64(2), int64(1), int64(2), int64(1)},
		},
		{
			name:   "unique",
			df:     df.Unique("id"),
			column: "v",
			expect: []any{int64(1), int64(2), int64(5)},
		},
		{
			name:   "global aggregate over empty input",
			df:     empty.Select(logical.Alias(logical.Sum(logical.Col("v")), "s")),
			column: "s",
			expect: []any{int64(0)},
		},
		{
			name:   "group by over empty input",
			df:     empty.GroupBy(logical.Col("id")).Agg(logical.Alias(logical.Sum(logical.Col("v")), "total")),
			column: "total",
			expect: []any{},
		},
	} {
		for _, batchSize := range []int{1, 2, 0} {
			t.Run(fmt.Sprintf("%s/batch_size=%d", tt.name, batchSize), func(t *testing.T) {
				out := mustCollect(t, tt.df, Config{BatchSize: batchSize})
				requireValues(t, out, tt.column, tt.expect...)
			})
		}
	}
}

func TestExecutor_WorkerCount(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(
		frame.Strings("g", "a", "b", "a", "c", "b", "a", "c"),
		frame.Int64s("v", 7, 3, nil, 1, 6, 2, 5),
	))

	queries := map[string]*logical.DataFrame{
		"group by": df.GroupBy(logical.Col("g")).Agg(
			logical.Alias(logical.Sum(logical.Col("v")), "sum"),
			logical.Alias(logical.Mean(logical.Col("v")), "mean"),
			logical.Alias(logical.NUnique(logical.Col("v")), "distinct"),
		),
		"window": df.WithColumns(logical.Alias(logical.Over(logical.CumSum(logical.Col("v")), logical.Col("g")), "running")),
		"sort":   df.Sort(logical.Desc(logical.Col("v")), logical.Asc(logical.Col("g"))),
		"filter": df.Filter(logical.Gt(logical.Mul(logical.Col("v"), logical.Lit[int64](2)), logical.Lit[int64](5))),
	}
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			single := mustCollect(t, q, Config{Pool: workers.New(1, 1)})
			many := mustCollect(t, q, Config{Pool: workers.New(4, 1)})
			require.Equal(t, single.Rows(), many.Rows())
		})
	}
}

func TestExecutor_Cancellation(t *testing.T) {
	df := logical.FromFrame("t", frame.MustNew(frame.Int64s("v", 1, 2, 3)))

	t.Run("pool", func(t *testing.T) {
		pool := workers.New(2, 0)
		pool.Cancel()
		_, err := collect(t, df.GroupBy(logical.Col("v")).Agg(logical.Alias(logical.Len(logical.Col("v")), "n")), Config{Pool: pool})
		require.ErrorIs(t, err, workers.ErrCancelled)
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := collectContext(ctx, t, df.Filter(logical.Gt(logical.Col("v"), logical.Lit[int64](1))), Config{})
		require.ErrorIs(t, err, context.Canceled)
	})
}
