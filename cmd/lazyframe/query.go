package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"

	"github.com/JacekPliszka/polars/pkg/engine"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/scan"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// queryCommand reads a CSV file, optionally filters, groups, sorts and
// limits it, and prints the result.
type queryCommand struct {
	g *globals

	file      string
	comma     string
	comment   string
	nulls     []string
	skipRows  int
	nRows     int
	rowIndex  string
	inferRows int
	where     []string
	selects   []string
	groupBy   []string
	aggs      []string
	sortBy    []string
	limit     int
	explain   bool
	optimized bool
}

func addQueryCommand(app *kingpin.Application, g *globals) {
	cmd := &queryCommand{g: g}
	c := app.Command("query", "Run a query over a CSV file.").Action(cmd.run)
	c.Arg("file", "The CSV file to read.").Required().ExistingFileVar(&cmd.file)
	c.Flag("comma", "Field delimiter.").Default(",").StringVar(&cmd.comma)
	c.Flag("comment", "Lines starting with this character are ignored.").StringVar(&cmd.comment)
	c.Flag("null", "Field value read as null. May be repeated.").StringsVar(&cmd.nulls)
	c.Flag("skip-rows", "Number of lines to skip before the header.").Default("0").IntVar(&cmd.skipRows)
	c.Flag("n-rows", "Read at most this many rows. 0 reads all rows.").Default("0").IntVar(&cmd.nRows)
	c.Flag("row-index", "Name of a column numbering the rows read.").StringVar(&cmd.rowIndex)
	c.Flag("infer-schema-length", "Rows used to infer column types. Negative reads all rows.").Default(strconv.Itoa(scan.DefaultInferSchemaLength)).IntVar(&cmd.inferRows)
	c.Flag("where", "Keep rows where column OP value holds, for OP one of = != < <= > >=, or where column~regexp matches. May be repeated.").StringsVar(&cmd.where)
	c.Flag("select", "Column to output. May be repeated.").StringsVar(&cmd.selects)
	c.Flag("group-by", "Column to group by. May be repeated.").StringsVar(&cmd.groupBy)
	c.Flag("agg", "Aggregation as op:column, for example sum:price. May be repeated.").StringsVar(&cmd.aggs)
	c.Flag("sort", "Column to sort by, suffixed with :desc for descending order. May be repeated.").StringsVar(&cmd.sortBy)
	c.Flag("limit", "Maximum number of rows to print. 0 means no limit.").Default("0").IntVar(&cmd.limit)
	c.Flag("explain", "Print the query plan instead of running it.").BoolVar(&cmd.explain)
	c.Flag("optimized", "With --explain, print the plan after optimization.").BoolVar(&cmd.optimized)
}

func (cmd *queryCommand) run(pc *kingpin.ParseContext) error {
	e, logger, err := cmd.g.engine(pc)
	if err != nil {
		return err
	}

	df, err := cmd.build()
	if err != nil {
		return err
	}
	if cmd.explain {
		out, err := e.Explain(df, engine.ExplainOptions{Optimized: cmd.optimized})
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	start := time.Now()
	f, err := e.Collect(context.Background(), df)
	if err != nil {
		return err
	}
	defer f.Release()

	fmt.Print(f.String())
	level.Info(logger).Log("msg", "query finished", "rows", humanize.Comma(int64(f.NumRows())), "duration", time.Since(start))
	return nil
}

func (cmd *queryCommand) build() (*logical.DataFrame, error) {
	comma := []rune(cmd.comma)
	if len(comma) != 1 {
		return nil, fmt.Errorf("invalid delimiter %q", cmd.comma)
	}
	opts := scan.CSVOptions{
		Comma:             comma[0],
		NullValues:        cmd.nulls,
		SkipRows:          cmd.skipRows,
		NRows:             cmd.nRows,
		RowIndex:          cmd.rowIndex,
		InferSchemaLength: cmd.inferRows,
	}
	if cmd.comment != "" {
		comment := []rune(cmd.comment)
		if len(comment) != 1 {
			return nil, fmt.Errorf("invalid comment character %q", cmd.comment)
		}
		opts.Comment = comment[0]
	}
	src, err := scan.NewCSVFile(cmd.file, types.Schema{}, opts)
	if err != nil {
		return nil, err
	}
	schema, err := src.Schema()
	if err != nil {
		return nil, err
	}

	df := logical.FromSource(src)
	for _, w := range cmd.where {
		pred, err := parseWhere(w, schema)
		if err != nil {
			return nil, err
		}
		df = df.Filter(pred)
	}

	if len(cmd.groupBy) > 0 || len(cmd.aggs) > 0 {
		aggs := make([]logical.Expr, 0, len(cmd.aggs))
		for _, a := range cmd.aggs {
			agg, err := parseAgg(a)
			if err != nil {
				return nil, err
			}
			aggs = append(aggs, agg)
		}
		if len(cmd.groupBy) == 0 {
			df = df.Select(aggs...)
		} else {
			df = df.GroupBy(logical.Cols(cmd.groupBy...)...).Agg(aggs...)
		}
	}

	if len(cmd.sortBy) > 0 {
		keys := make([]logical.SortKey, len(cmd.sortBy))
		for i, s := range cmd.sortBy {
			name, desc := strings.CutSuffix(s, ":desc")
			keys[i] = logical.Asc(logical.Col(name))
			if desc {
				keys[i] = logical.Desc(logical.Col(name))
			}
		}
		df = df.Sort(keys...)
	}
	if len(cmd.selects) > 0 {
		df = df.Select(logical.Cols(cmd.selects...)...)
	}
	if cmd.limit > 0 {
		df = df.Limit(cmd.limit)
	}
	return df, nil
}

var aggregations = map[string]func(logical.Expr) *logical.AggregateExpr{
	"sum":      logical.Sum,
	"mean":     logical.Mean,
	"min":      logical.Minimum,
	"max":      logical.Maximum,
	"count":    logical.Count,
	"len":      logical.Len,
	"median":   logical.Median,
	"first":    logical.First,
	"last":     logical.Last,
	"n_unique": logical.NUnique,
	"std":      logical.Std,
	"var":      logical.Var,
}

// parseAgg parses op:column into an aggregation named column_op.
func parseAgg(s string) (logical.Expr, error) {
	op, column, ok := strings.Cut(s, ":")
	if !ok || column == "" {
		return nil, fmt.Errorf("invalid aggregation %q, expected op:column", s)
	}
	fn, ok := aggregations[op]
	if !ok {
		return nil, fmt.Errorf("unknown aggregation %q", op)
	}
	return logical.Alias(fn(logical.Col(column)), column+"_"+op), nil
}

var comparisons = []struct {
	op string
	fn func(l, r logical.Expr) *logical.BinaryExpr
}{
	// Two-character operators first, so that "<=" is not read as "<".
	{"!=", logical.Neq},
	{"<=", logical.Lte},
	{">=", logical.Gte},
	{"=", logical.Eq},
	{"<", logical.Lt},
	{">", logical.Gt},
}

// parseWhere parses a comparison of a column with a literal, or column~regexp.
// The literal is parsed according to the type of the column.
func parseWhere(s string, schema types.Schema) (logical.Expr, error) {
	if column, pattern, ok := strings.Cut(s, "~"); ok {
		return logical.Contains(logical.Col(strings.TrimSpace(column)), strings.TrimSpace(pattern)), nil
	}
	for _, c := range comparisons {
		column, value, ok := strings.Cut(s, c.op)
		if !ok {
			continue
		}
		column = strings.TrimSpace(column)
		field, ok := schema.Field(column)
		if !ok {
			return nil, fmt.Errorf("unknown column %q in %q", column, s)
		}
		lit, err := parseLiteral(strings.TrimSpace(value), field.Type)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q: %w", s, err)
		}
		return c.fn(logical.Col(column), lit), nil
	}
	return nil, fmt.Errorf("invalid condition %q", s)
}

func parseLiteral(v string, dt types.DataType) (*logical.LiteralExpr, error) {
	switch dt {
	case types.Int32, types.Int64:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		return logical.Lit(n), nil
	case types.Float64:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return logical.Lit(f), nil
	case types.Bool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		return logical.Lit(b), nil
	case types.Timestamp:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, err
		}
		return logical.Lit(t), nil
	}
	return logical.Lit(v), nil
}
