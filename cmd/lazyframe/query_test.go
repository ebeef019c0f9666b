package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

func TestParseWhere(t *testing.T) {
	schema := types.NewSchema(
		types.Field{Name: "n", Type: types.Int64},
		types.Field{Name: "f", Type: types.Float64},
		types.Field{Name: "s", Type: types.String},
	)

	for _, tt := range []struct {
		in     string
		expect string
	}{
		{in: "n>=3", expect: "(col(n) >= 3)"},
		{in: "n != 3", expect: "(col(n) != 3)"},
		{in: "f<1.5", expect: logical.Lt(logical.Col("f"), logical.Lit(1.5)).String()},
		{in: "s=abc", expect: logical.Eq(logical.Col("s"), logical.Lit("abc")).String()},
		{in: "s~^a.c$", expect: `contains(col(s), "^a.c$")`},
	} {
		t.Run(tt.in, func(t *testing.T) {
			e, err := parseWhere(tt.in, schema)
			require.NoError(t, err)
			require.Equal(t, tt.expect, e.String())
		})
	}

	for _, in := range []string{"n^3", "x=1", "n=abc"} {
		_, err := parseWhere(in, schema)
		require.Error(t, err, in)
	}
}

func TestParseAgg(t *testing.T) {
	e, err := parseAgg("sum:price")
	require.NoError(t, err)
	require.Equal(t, "price_sum", logical.OutputName(e))

	for _, in := range []string{"sum", "sum:", "total:price"} {
		_, err := parseAgg(in)
		require.Error(t, err, in)
	}
}

func TestQueryCommand_Build(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("region,amount\nnorth,10\nsouth,5\nnorth,7\n"), 0o644))

	cmd := &queryCommand{
		file:    path,
		comma:   ",",
		where:   []string{"amount>5"},
		groupBy: []string{"region"},
		aggs:    []string{"sum:amount"},
		sortBy:  []string{"amount_sum:desc"},
		limit:   1,
	}
	df, err := cmd.build()
	require.NoError(t, err)

	schema, err := df.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"region", "amount_sum"}, schema.Names())
}

func TestQueryCommand_CSVOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("exported\nregion,amount\n# north only\nnorth,10\nsouth,5\n"), 0o644))

	cmd := &queryCommand{
		file:      path,
		comma:     ",",
		comment:   "#",
		skipRows:  1,
		nRows:     1,
		rowIndex:  "nr",
		inferRows: 10,
	}
	df, err := cmd.build()
	require.NoError(t, err)

	schema, err := df.Schema()
	require.NoError(t, err)
	require.Equal(t, []string{"nr", "region", "amount"}, schema.Names())

	cmd.comment = "##"
	_, err = cmd.build()
	require.Error(t, err)
}
