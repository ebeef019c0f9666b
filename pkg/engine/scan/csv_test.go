package scan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/JacekPliszka/polars/pkg/engine/frame"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

const testCSV = `id,name,score
1,a,1.5
2,,2.5
3,b,NA
4,a,4
`

func stringOpener(data string) OpenFunc {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	}
}

func readAll(t *testing.T, src logical.Source, opts logical.ScanOptions) (batches int, values map[string][]any) {
	t.Helper()
	r, err := src.Open(context.Background(), opts)
	require.NoError(t, err)
	defer r.Release()

	values = make(map[string][]any)
	for r.Next() {
		batches++
		f, err := frame.FromRecord(retained(r.Record()))
		require.NoError(t, err)
		for _, name := range f.Schema().Names() {
			vals, err := f.Values(name)
			require.NoError(t, err)
			values[name] = append(values[name], vals...)
		}
		f.Release()
	}
	require.NoError(t, r.Err())
	return batches, values
}

func retained(rec arrow.Record) arrow.Record {
	rec.Retain()
	return rec
}

func TestCSV_Open(t *testing.T) {
	schema := types.NewSchema(
		types.Field{Name: "id", Type: types.Int64},
		types.Field{Name: "name", Type: types.Categorical},
		types.Field{Name: "score", Type: types.Float64},
	)
	src, err := NewCSV("scores", stringOpener(testCSV), schema, CSVOptions{NullValues: []string{"NA"}})
	require.NoError(t, err)

	got, err := src.Schema()
	require.NoError(t, err)
	require.True(t, schema.Equal(got))

	t.Run("all columns", func(t *testing.T) {
		batches, values := readAll(t, src, logical.ScanOptions{BatchSize: 3})
		require.Equal(t, 2, batches)
		require.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, values["id"])
		require.Equal(t, []any{"a", nil, "b", "a"}, values["name"])
		require.Equal(t, []any{1.5, 2.5, nil, 4.0}, values["score"])
	})

	t.Run("projected columns", func(t *testing.T) {
		r, err := src.Open(context.Background(), logical.ScanOptions{Columns: []string{"score", "id"}})
		require.NoError(t, err)
		defer r.Release()

		require.Equal(t, []string{"score", "id"}, []string{r.Schema().Field(0).Name, r.Schema().Field(1).Name})
		require.True(t, r.Next())
		require.Equal(t, int64(4), r.Record().NumRows())
		require.False(t, r.Next())
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := src.Open(context.Background(), logical.ScanOptions{Columns: []string{"missing"}})
		require.ErrorIs(t, err, errors.ErrSchema)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := src.Open(ctx, logical.ScanOptions{})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCSV_ParseError(t *testing.T) {
	schema := types.NewSchema(types.Field{Name: "id", Type: types.Int64})
	src, err := NewCSV("bad", stringOpener("id\n1\nx\n"), schema, CSVOptions{})
	require.NoError(t, err)

	r, err := src.Open(context.Background(), logical.ScanOptions{Allocator: memory.DefaultAllocator})
	require.NoError(t, err)
	defer r.Release()
	for r.Next() {
	}
	require.Error(t, r.Err())
}

func TestNewCSV_UnsupportedType(t *testing.T) {
	_, err := NewCSV("d", stringOpener(""), types.NewSchema(types.Field{Name: "d", Type: types.Duration}), CSVOptions{})
	require.ErrorIs(t, err, errors.ErrDataType)
}

func TestNewCSVFile_InfersSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("k;v;s\n1;0.5;x\n2;1.5;y\n"), 0o644))

	src, err := NewCSVFile(path, types.Schema{}, CSVOptions{Comma: ';'})
	require.NoError(t, err)

	schema, err := src.Schema()
	require.NoError(t, err)
	require.Equal(t, "k: Int64, v: Float64, s: String", fieldList(schema))

	_, values := readAll(t, src, logical.ScanOptions{})
	require.Equal(t, []any{"x", "y"}, values["s"])
}

func TestCSV_Options(t *testing.T) {
	const data = `generated by a test
id,name,score
# first block
1,a,1.5
2,b"x,2.5
3,c,3.5
# second block
4,d,4.5
`
	schema := types.NewSchema(
		types.Field{Name: "id", Type: types.Int64},
		types.Field{Name: "name", Type: types.String},
		types.Field{Name: "score", Type: types.Float64},
	)
	base := CSVOptions{SkipRows: 1, Comment: '#', LazyQuotes: true}

	for _, tt := range []struct {
		name    string
		opts    func(o *CSVOptions)
		columns []string
		expect  map[string][]any
	}{
		{
			name: "comments and lazy quotes",
			opts: func(*CSVOptions) {},
			expect: map[string][]any{
				"id":    {int64(1), int64(2), int64(3), int64(4)},
				"name":  {"a", `b"x`, "c", "d"},
				"score": {1.5, 2.5, 3.5, 4.5},
			},
		},
		{
			name:   "n rows",
			opts:   func(o *CSVOptions) { o.NRows = 3 },
			expect: map[string][]any{"id": {int64(1), int64(2), int64(3)}},
		},
		{
			name: "row index",
			opts: func(o *CSVOptions) { o.RowIndex, o.RowIndexOffset = "nr", 10 },
			expect: map[string][]any{
				"nr": {int64(10), int64(11), int64(12), int64(13)},
				"id": {int64(1), int64(2), int64(3), int64(4)},
			},
		},
		{
			name:    "projected row index with n rows",
			opts:    func(o *CSVOptions) { o.RowIndex, o.NRows = "nr", 3 },
			columns: []string{"score", "nr"},
			expect: map[string][]any{
				"score": {1.5, 2.5, 3.5},
				"nr":    {int64(0), int64(1), int64(2)},
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.opts(&opts)
			src, err := NewCSV("opts", stringOpener(data), schema, opts)
			require.NoError(t, err)

			// Batches of two rows make n_rows cut inside a batch.
			_, values := readAll(t, src, logical.ScanOptions{Columns: tt.columns, BatchSize: 2})
			for name, expect := range tt.expect {
				require.Equal(t, expect, values[name], name)
			}
		})
	}
}

func TestCSV_RowIndexSchema(t *testing.T) {
	schema := types.NewSchema(types.Field{Name: "id", Type: types.Int64})

	src, err := NewCSV("s", stringOpener("id\n1\n"), schema, CSVOptions{RowIndex: "nr"})
	require.NoError(t, err)
	got, err := src.Schema()
	require.NoError(t, err)
	require.Equal(t, "nr: Int64, id: Int64", fieldList(got))
	require.Equal(t, []string{"nr"}, src.SortedBy())

	_, err = NewCSV("s", stringOpener(""), schema, CSVOptions{RowIndex: "id"})
	require.ErrorIs(t, err, errors.ErrSchema)

	_, err = NewCSV("s", stringOpener(""), schema, CSVOptions{NRows: -1})
	require.ErrorIs(t, err, errors.ErrCompute)
}

func TestInferCSVSchema(t *testing.T) {
	const data = `a,b,c,d,e
1,1,x,true,2024-01-02
2,2.5,,false,
3,NA,y,,2024-01-03 10:00:00
4,5,z,true,2024-01-04
x,6,1,true,2024-01-05
`
	for _, tt := range []struct {
		name   string
		opts   CSVOptions
		expect string
	}{
		{
			name:   "default length",
			opts:   CSVOptions{NullValues: []string{"NA"}},
			expect: "a: String, b: Float64, c: String, d: Bool, e: Timestamp",
		},
		{
			name:   "first row only",
			opts:   CSVOptions{InferSchemaLength: 1},
			expect: "a: Int64, b: Int64, c: String, d: Bool, e: Timestamp",
		},
		{
			name:   "bounded by n rows",
			opts:   CSVOptions{NRows: 4, NullValues: []string{"NA"}},
			expect: "a: Int64, b: Float64, c: String, d: Bool, e: Timestamp",
		},
		{
			name:   "no header",
			opts:   CSVOptions{NoHeader: true, InferSchemaLength: -1},
			expect: "column_1: String, column_2: String, column_3: String, column_4: String, column_5: String",
		},
		{
			name:   "skip rows",
			opts:   CSVOptions{SkipRows: 4},
			expect: "4: String, 5: Int64, z: Int64, true: Bool, 2024-01-04: Timestamp",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := InferCSVSchema(stringOpener(data), tt.opts)
			require.NoError(t, err)
			require.Equal(t, tt.expect, fieldList(schema))
		})
	}

	_, err := InferCSVSchema(stringOpener(""), CSVOptions{})
	require.ErrorContains(t, err, "empty")
}

func TestNewCSVFile_Missing(t *testing.T) {
	_, err := NewCSVFile(filepath.Join(t.TempDir(), "missing.csv"), types.Schema{}, CSVOptions{})
	require.ErrorContains(t, err, "opening csv file")
}

func fieldList(s types.Schema) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
