package logical

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

func optimizeTree(t *testing.T, df *DataFrame, opts OptimizerOptions) string {
	t.Helper()
	p, err := Optimize(df.Plan(), opts)
	require.NoError(t, err)
	return "\n" + FormatTree(p)
}

func TestPredicatePushdown(t *testing.T) {
	opts := OptimizerOptions{PredicatePushdown: true}
	base := FromSource(abcSource())

	t.Run("through projection and sort", func(t *testing.T) {
		df := base.
			WithColumns(Alias(Mul(Col("a"), Lit[int64](2)), "d")).
			SortBy("a").
			Filter(Gt(Col("b"), Lit[int64](1)))

		expected := `
Sort by=(col(a))
└── WithColumns exprs=((col(a) * 2) AS d)
    └── Scan source=t predicate=(col(b) > 1)
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("renamed column", func(t *testing.T) {
		df := base.
			Select(Alias(Col("a"), "x"), Col("c")).
			Filter(Eq(Col("x"), Lit[int64](3)))

		expected := `
Select exprs=(col(a) AS x, col(c))
└── Scan source=t predicate=(col(a) == 3)
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("computed column stays", func(t *testing.T) {
		df := base.
			WithColumns(Alias(Mul(Col("a"), Lit[int64](2)), "d")).
			Filter(Gt(Col("d"), Lit[int64](4)))

		expected := `
Filter predicate=(col(d) > 4)
└── WithColumns exprs=((col(a) * 2) AS d)
    └── Scan source=t
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("never below a window", func(t *testing.T) {
		df := base.
			WithColumns(Alias(Over(Sum(Col("a")), Col("c")), "s")).
			Filter(Gt(Col("a"), Lit[int64](0)))

		expected := `
Filter predicate=(col(a) > 0)
└── Window exprs=(sum(col(a)).over(col(c)) AS s)
    └── Scan source=t
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("never below a limit", func(t *testing.T) {
		df := base.Limit(3).Filter(Gt(Col("a"), Lit[int64](0)))

		expected := `
Filter predicate=(col(a) > 0)
└── Limit offset=0 length=3
    └── Scan source=t
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("aggregate keys only", func(t *testing.T) {
		df := base.
			GroupBy(Col("c")).
			Agg(Alias(Sum(Col("a")), "s")).
			Filter(Eq(Col("c"), Lit("x"))).
			Filter(Gt(Col("s"), Lit[int64](1)))

		expected := `
Filter predicate=(col(s) > 1)
└── Aggregate keys=(col(c)) aggs=(sum(col(a)) AS s)
    └── Scan source=t predicate=(col(c) == "x")
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("union", func(t *testing.T) {
		df := base.Union(base).Filter(Gt(Col("a"), Lit[int64](0)))

		expected := `
Union
├── Scan source=t predicate=(col(a) > 0)
└── Scan source=t predicate=(col(a) > 0)
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("conjuncts keep their order", func(t *testing.T) {
		df := base.
			Filter(Gt(Col("a"), Lit[int64](0))).
			Filter(Lt(Col("b"), Lit[int64](9)))

		expected := `
Scan source=t predicate=((col(a) > 0) & (col(b) < 9))
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})
}

func TestPredicatePushdown_Joins(t *testing.T) {
	opts := OptimizerOptions{PredicatePushdown: true}
	left := FromSource(newTestSource("l", field("k", types.Int64), field("x", types.Int64)))
	right := FromSource(newTestSource("r", field("k", types.Int64), field("x", types.Int64)))
	pred := And(Gt(Col("x"), Lit[int64](0)), Eq(Col("x_right"), Lit[int64](5)))

	t.Run("inner", func(t *testing.T) {
		df := left.JoinOn(right, types.JoinTypeInner, "k").Filter(pred)

		expected := `
Join type=inner left_on=(col(k)) right_on=(col(k))
├── Scan source=l predicate=(col(x) > 0)
└── Scan source=r predicate=(col(x) == 5)
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("left", func(t *testing.T) {
		df := left.JoinOn(right, types.JoinTypeLeft, "k").Filter(pred)

		expected := `
Filter predicate=(col(x_right) == 5)
└── Join type=left left_on=(col(k)) right_on=(col(k))
    ├── Scan source=l predicate=(col(x) > 0)
    └── Scan source=r
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("outer", func(t *testing.T) {
		df := left.JoinOn(right, types.JoinTypeOuter, "k").Filter(pred)

		expected := `
Filter predicate=((col(x) > 0) & (col(x_right) == 5))
└── Join type=outer left_on=(col(k)) right_on=(col(k))
    ├── Scan source=l
    └── Scan source=r
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("asof", func(t *testing.T) {
		df := left.JoinAsOf(right, "k", "k", AsOfOptions{}).Filter(Gt(Col("x"), Lit[int64](0)))

		expected := `
Filter predicate=(col(x) > 0)
└── Join type=asof left_on=(col(k)) right_on=(col(k)) strategy=backward
    ├── Scan source=l
    └── Scan source=r
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})
}

func TestProjectionPushdown(t *testing.T) {
	base := FromSource(abcSource())

	t.Run("alone", func(t *testing.T) {
		df := base.Filter(Gt(Col("b"), Lit[int64](1))).Select(Col("a"))

		expected := `
Select exprs=(col(a))
└── Filter predicate=(col(b) > 1)
    └── Scan source=t columns=(a, b)
`
		require.Equal(t, expected, optimizeTree(t, df, OptimizerOptions{ProjectionPushdown: true}))
	})

	t.Run("with predicate pushdown", func(t *testing.T) {
		df := base.Filter(Gt(Col("b"), Lit[int64](1))).Select(Col("a"))

		expected := `
Select exprs=(col(a))
└── Scan source=t columns=(a) predicate=(col(b) > 1)
`
		require.Equal(t, expected, optimizeTree(t, df, DefaultOptimizerOptions()))
	})

	t.Run("unused computed column", func(t *testing.T) {
		df := base.WithColumns(Alias(Mul(Col("b"), Lit[int64](2)), "d")).Select(Col("a"))

		expected := `
Select exprs=(col(a))
└── Scan source=t columns=(a)
`
		require.Equal(t, expected, optimizeTree(t, df, OptimizerOptions{ProjectionPushdown: true}))
	})

	t.Run("aggregate", func(t *testing.T) {
		df := base.GroupBy(Col("c")).Agg(Alias(Sum(Col("a")), "s"))

		expected := `
Aggregate keys=(col(c)) aggs=(sum(col(a)) AS s)
└── Scan source=t columns=(a, c)
`
		require.Equal(t, expected, optimizeTree(t, df, OptimizerOptions{ProjectionPushdown: true}))
	})
}

func TestSlicePushdown(t *testing.T) {
	df := FromSource(abcSource()).
		Select(Col("a"), Col("b")).
		Slice(2, 3).
		Limit(2)

	expected := `
Select exprs=(col(a), col(b))
└── Scan source=t offset=2 length=2
`
	require.Equal(t, expected, optimizeTree(t, df, OptimizerOptions{SlicePushdown: true}))
}

func TestComposeSlices(t *testing.T) {
	for _, tt := range []struct {
		inner, outer, want SliceRange
	}{
		{SliceRange{0, 10}, SliceRange{0, 5}, SliceRange{0, 5}},
		{SliceRange{2, 3}, SliceRange{0, 2}, SliceRange{2, 2}},
		{SliceRange{2, 3}, SliceRange{1, 10}, SliceRange{3, 2}},
		{SliceRange{0, 3}, SliceRange{5, 1}, SliceRange{5, 0}},
	} {
		require.Equal(t, tt.want, composeSlices(tt.inner, tt.outer))
	}
}

func TestCommonSubexpressionElimination(t *testing.T) {
	opts := OptimizerOptions{CSE: true}
	base := FromSource(abcSource())
	ab := func() Expr { return Mul(Col("a"), Col("b")) }

	t.Run("select", func(t *testing.T) {
		df := base.Select(
			Alias(Add(ab(), Lit[int64](1)), "x"),
			Alias(Sub(ab(), Lit[int64](1)), "y"),
		)

		expected := `
Select exprs=((col(__cse_0) + 1) AS x, (col(__cse_0) - 1) AS y)
└── WithColumns exprs=((col(a) * col(b)) AS __cse_0)
    └── Scan source=t
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("with columns drops shared columns", func(t *testing.T) {
		df := base.WithColumns(
			Alias(Add(ab(), Lit[int64](1)), "x"),
			Alias(Mul(ab(), Lit[int64](2)), "y"),
		)

		expected := `
Drop exprs=(col(__cse_0))
└── WithColumns exprs=((col(__cse_0) + 1) AS x, (col(__cse_0) * 2) AS y)
    └── WithColumns exprs=((col(a) * col(b)) AS __cse_0)
        └── Scan source=t
`
		require.Equal(t, expected, optimizeTree(t, df, opts))
	})

	t.Run("keeps output names", func(t *testing.T) {
		df := base.Select(Add(ab(), Cast(Col("c"), types.Int64)), Sub(Col("b"), ab()))

		p, err := Optimize(df.Plan(), opts)
		require.NoError(t, err)
		schema, err := p.Schema()
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, schema.Names())
	})

	t.Run("nothing repeated", func(t *testing.T) {
		df := base.Select(Alias(ab(), "x"), Alias(Add(Col("a"), Cast(Col("c"), types.Int64)), "y"))
		require.Equal(t, "\n"+FormatTree(df.Plan()), optimizeTree(t, df, opts))
	})
}

func TestOptimize_PreservesSchema(t *testing.T) {
	base := FromSource(abcSource())
	other := FromSource(newTestSource("u", field("a", types.Int64), field("b", types.Float64), field("d", types.Bool)))

	for _, tt := range []struct {
		name string
		df   *DataFrame
	}{
		{"filter select", base.Filter(Gt(Col("a"), Lit[int64](1))).Select(Col("c"))},
		{"literal select", base.Select(Alias(Lit[int64](1), "one")).Filter(Gt(Col("one"), Lit[int64](0)))},
		{"scalar select", base.Select(Sum(Col("a")), Alias(Mean(Col("b")), "m"))},
		{"join", base.JoinOn(other, types.JoinTypeInner, "a").Select(Col("b_right"), Col("c"))},
		{"semi join", base.JoinOn(other, types.JoinTypeSemi, "a").Filter(Gt(Col("b"), Lit[int64](0))).Select(Col("c"))},
		{"anti join", base.JoinOn(other, types.JoinTypeAnti, "a").Limit(1)},
		{"outer join", base.Join(other, JoinOptions{Type: types.JoinTypeOuter, LeftOn: Cols("a"), RightOn: Cols("a"), Coalesce: true}).Select(Col("d"))},
		{"cross join", base.CrossJoin(other.Select(Col("d"))).Filter(Col("d")).Select(Col("a"))},
		{"asof join", base.JoinAsOf(other, "a", "a", AsOfOptions{Strategy: types.AsOfNearest}).Select(Col("d"))},
		{"group by", base.Filter(Gt(Col("b"), Lit[int64](0))).GroupBy(Col("c")).Agg(Alias(Sum(Mul(Col("a"), Col("b"))), "s"), Alias(Mean(Mul(Col("a"), Col("b"))), "m")).Select(Col("m"))},
		{"global aggregate", base.GroupBy().Agg(Len(Col("a"))).Filter(Gt(Col("a"), Lit[int64](0)))},
		{"window", base.WithColumns(Alias(Over(Sum(Col("a")), Col("c")), "s")).Filter(Gt(Col("s"), Lit[int64](1))).Select(Col("s"))},
		{"window unused", base.WithColumns(Alias(Over(Sum(Col("a")), Col("c")), "s")).Select(Col("a"))},
		{"sort limit", base.SortBy("c").Limit(2).Select(Col("a"))},
		{"union", base.Union(base.Filter(Gt(Col("a"), Lit[int64](2)))).Select(Col("b")).Limit(4)},
		{"distinct", base.Unique("c").Filter(Eq(Col("c"), Lit("x"))).Select(Col("a"))},
		{"drop", base.Drop("b").Filter(Gt(Col("a"), Lit[int64](0)))},
		{"rename", base.Select(Alias(Col("a"), "b"), Alias(Col("b"), "a")).Filter(Gt(Col("a"), Lit[int64](1)))},
		{"sequence", base.WithColumns(Alias(CumSum(Col("a")), "cs")).Filter(Gt(Col("cs"), Lit[int64](2))).Limit(1)},
		{"true filter", base.Filter(Lit(true))},
	} {
		t.Run(tt.name, func(t *testing.T) {
			want, err := tt.df.Schema()
			require.NoError(t, err)

			p, err := Optimize(tt.df.Plan(), DefaultOptimizerOptions())
			require.NoError(t, err)

			got, err := p.Schema()
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestOptimize_InvalidPlan(t *testing.T) {
	_, err := Optimize(FromSource(abcSource()).Select(Col("z")).Plan(), DefaultOptimizerOptions())
	require.ErrorIs(t, err, errors.ErrSchema)

	_, err = Optimize(FromSource(abcSource()).Filter(Col("c")).Plan(), DefaultOptimizerOptions())
	require.ErrorIs(t, err, errors.ErrDataType)
}
