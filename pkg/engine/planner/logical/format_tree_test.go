package logical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JacekPliszka/polars/pkg/engine/types"
)

func TestFormatSimpleQuery(t *testing.T) {
	df := FromSource(newTestSource("orders", field("id", types.Int64), field("v", types.Int64))).
		Filter(Gt(Col("v"), Lit[int64](10))).
		GroupBy(Col("id")).
		Agg(Alias(Sum(Col("v")), "total"))

	var sb strings.Builder
	PrintTree(&sb, df.Plan())

	actual := "\n" + sb.String()
	t.Logf("Actual output:\n%s", actual)

	expected := `
Aggregate keys=(col(id)) aggs=(sum(col(v)) AS total)
└── Filter predicate=(col(v) > 10)
    └── Scan source=orders
`
	require.Equal(t, expected, actual)
}

func TestFormatJoinQuery(t *testing.T) {
	left := FromSource(newTestSource("a", field("k", types.Int64)))
	right := FromSource(newTestSource("b", field("k", types.Int64), field("x", types.Int64)))

	df := left.Join(right, JoinOptions{
		Type:     types.JoinTypeLeft,
		LeftOn:   Cols("k"),
		RightOn:  Cols("k"),
		Validate: types.ValidateManyToOne,
	}).Sort(Desc(Col("x"))).Limit(5)

	expected := `
Limit offset=0 length=5
└── Sort by=(col(x) desc nulls_last)
    └── Join type=left left_on=(col(k)) right_on=(col(k)) validate=m:1
        ├── Scan source=a
        └── Scan source=b
`
	require.Equal(t, expected, "\n"+FormatTree(df.Plan()))
}

func TestFormatProjections(t *testing.T) {
	df := FromSource(abcSource()).
		WithColumns(Alias(Over(Mean(Col("a")), Col("c")), "m")).
		Drop("b").
		Select(Col("a"), Col("m")).
		Unique("a")

	expected := `
Distinct subset=(a)
└── Select exprs=(col(a), col(m))
    └── Drop exprs=(col(b))
        └── Window exprs=(mean(col(a)).over(col(c)) AS m)
            └── Scan source=t
`
	require.Equal(t, expected, "\n"+FormatTree(df.Plan()))
}
