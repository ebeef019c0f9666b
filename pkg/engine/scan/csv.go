// Package scan provides data sources for lazy queries.
package scan

import (
	"bufio"
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	engerrors "github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// DefaultInferSchemaLength is the number of data rows used to infer column
// types when CSVOptions.InferSchemaLength is zero.
const DefaultInferSchemaLength = 100

// CSVOptions control how CSV data is parsed.
type CSVOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// Comment starts a line that is ignored. Zero disables comments.
	Comment rune

	// LazyQuotes accepts quotes in unquoted fields and unescaped quotes in
	// quoted fields.
	LazyQuotes bool

	// NoHeader reports that the first line holds data instead of column
	// names.
	NoHeader bool

	// SkipRows is the number of lines skipped before the header.
	SkipRows int

	// NRows stops reading after that many data rows. Zero reads all rows.
	NRows int

	// RowIndex names an Int64 column placed before the data columns that
	// numbers the rows read, starting at RowIndexOffset. Empty adds no
	// column.
	RowIndex       string
	RowIndexOffset int64

	// InferSchemaLength is the number of data rows read to infer column
	// types. Zero means DefaultInferSchemaLength and a negative value reads
	// all rows.
	InferSchemaLength int

	// NullValues are the field values read as null. Empty fields are always
	// null.
	NullValues []string

	// SortedBy declares columns the data is sorted by, ascending with nulls
	// first.
	SortedBy []string
}

func (o CSVOptions) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

func (o CSVOptions) nulls() []string {
	return append([]string{""}, o.NullValues...)
}

func (o CSVOptions) readerOptions(mem memory.Allocator, chunk int) []csv.Option {
	opts := []csv.Option{
		csv.WithAllocator(mem),
		csv.WithComma(o.comma()),
		csv.WithHeader(!o.NoHeader),
		csv.WithLazyQuotes(o.LazyQuotes),
		csv.WithNullReader(true, o.nulls()...),
		csv.WithChunk(chunk),
	}
	if o.Comment != 0 {
		opts = append(opts, csv.WithComment(o.Comment))
	}
	return opts
}

// skipLines returns r positioned after its first n lines.
func skipLines(r io.Reader, n int) (io.Reader, error) {
	if n <= 0 {
		return r, nil
	}
	br := bufio.NewReader(r)
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "skipping csv rows")
		}
	}
	return br, nil
}

// OpenFunc opens the CSV data of a source. It is called once per scan.
type OpenFunc func() (io.ReadCloser, error)

// CSV is a [logical.Source] reading delimited text.
type CSV struct {
	name   string
	open   OpenFunc
	schema types.Schema
	opts   CSVOptions
}

var _ logical.Source = (*CSV)(nil)

// NewCSV returns a source reading CSV data with the given schema from the
// readers returned by open.
func NewCSV(name string, open OpenFunc, schema types.Schema, opts CSVOptions) (*CSV, error) {
	for _, f := range schema.Fields {
		if !csvReadable(f.Type) {
			return nil, engerrors.DataTypef(f.Name, "type %s cannot be read from CSV", f.Type)
		}
	}
	if opts.RowIndex != "" && schema.Index(opts.RowIndex) >= 0 {
		return nil, engerrors.Schemaf(opts.RowIndex, "row index collides with a column of source %s", name)
	}
	if opts.SkipRows < 0 || opts.NRows < 0 {
		return nil, engerrors.Computef(name, "skip_rows and n_rows must not be negative")
	}
	return &CSV{name: name, open: open, schema: schema, opts: opts}, nil
}

// NewCSVFile returns a source reading the CSV file at path. A zero schema is
// inferred from the start of the file.
func NewCSVFile(path string, schema types.Schema, opts CSVOptions) (*CSV, error) {
	open := func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "opening csv file")
		}
		return f, nil
	}
	if schema.Len() == 0 {
		var err error
		if schema, err = InferCSVSchema(open, opts); err != nil {
			return nil, errors.Wrapf(err, "inferring schema of %s", path)
		}
	}
	return NewCSV(path, open, schema, opts)
}

// InferCSVSchema infers the column types from the first
// opts.InferSchemaLength rows of the data returned by open. A column takes
// the narrowest of Bool, Int64, Float64, Timestamp and String that holds
// every non-null value read. Columns without values are String.
func InferCSVSchema(open OpenFunc, opts CSVOptions) (types.Schema, error) {
	rc, err := open()
	if err != nil {
		return types.Schema{}, err
	}
	defer rc.Close()

	in, err := skipLines(rc, opts.SkipRows)
	if err != nil {
		return types.Schema{}, err
	}
	r := stdcsv.NewReader(in)
	r.Comma = opts.comma()
	r.Comment = opts.Comment
	r.LazyQuotes = opts.LazyQuotes
	r.ReuseRecord = true

	limit := opts.InferSchemaLength
	if limit == 0 {
		limit = DefaultInferSchemaLength
	}
	if opts.NRows > 0 && (limit < 0 || opts.NRows < limit) {
		limit = opts.NRows
	}

	var (
		names  []string
		dtypes []types.DataType
		nulls  = opts.nulls()
	)
	for rows := 0; limit < 0 || rows < limit; {
		rec, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return types.Schema{}, errors.Wrap(err, "reading csv data")
		}

		if names == nil {
			names = make([]string, len(rec))
			dtypes = make([]types.DataType, len(rec))
			for i := range rec {
				names[i] = fmt.Sprintf("column_%d", i+1)
				dtypes[i] = types.Null
			}
			if !opts.NoHeader {
				copy(names, rec)
				continue
			}
		}
		for i, v := range rec {
			if !slices.Contains(nulls, v) {
				dtypes[i] = widen(dtypes[i], inferValue(v))
			}
		}
		rows++
	}
	if names == nil {
		return types.Schema{}, errors.New("csv data is empty")
	}

	fields := make([]types.Field, len(names))
	for i, name := range names {
		dt := dtypes[i]
		if dt == types.Null {
			dt = types.String
		}
		fields[i] = types.Field{Name: name, Type: dt}
	}
	return types.NewSchema(fields...), nil
}

// inferValue returns the narrowest type that can hold v.
func inferValue(v string) types.DataType {
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return types.Int64
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return types.Float64
	}
	if _, err := strconv.ParseBool(v); err == nil {
		return types.Bool
	}
	if _, err := arrow.TimestampFromString(v, arrow.Nanosecond); err == nil {
		return types.Timestamp
	}
	return types.String
}

// widen returns the type holding the values of both a and b.
func widen(a, b types.DataType) types.DataType {
	switch {
	case a == types.Null || a == b:
		return b
	case (a == types.Int64 && b == types.Float64) || (a == types.Float64 && b == types.Int64):
		return types.Float64
	}
	return types.String
}

func csvReadable(dt types.DataType) bool {
	switch dt {
	case types.Bool, types.Int32, types.Int64, types.Float64, types.String, types.Timestamp, types.Categorical:
		return true
	}
	return false
}

func (s *CSV) Name() string { return s.name }

func (s *CSV) Schema() (types.Schema, error) {
	if s.opts.RowIndex == "" {
		return s.schema, nil
	}
	fields := make([]types.Field, 0, s.schema.Len()+1)
	fields = append(fields, types.Field{Name: s.opts.RowIndex, Type: types.Int64})
	fields = append(fields, s.schema.Fields...)
	return types.NewSchema(fields...), nil
}

// SortedBy returns the declared sort columns. Without them, the row index
// orders the data.
func (s *CSV) SortedBy() []string {
	if len(s.opts.SortedBy) == 0 && s.opts.RowIndex != "" {
		return []string{s.opts.RowIndex}
	}
	return s.opts.SortedBy
}

// Open implements [logical.Source]. Categorical columns are parsed as
// strings and dictionary-encoded per batch.
func (s *CSV) Open(ctx context.Context, opts logical.ScanOptions) (array.RecordReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.Schema()
	if err != nil {
		return nil, err
	}
	columns := opts.Columns
	if columns == nil {
		columns = full.Names()
	}
	// Indices point into the data columns; rowIndexColumn marks the row
	// index.
	indices := make([]int, len(columns))
	for i, name := range columns {
		if s.opts.RowIndex != "" && name == s.opts.RowIndex {
			indices[i] = rowIndexColumn
			continue
		}
		if indices[i] = s.schema.Index(name); indices[i] < 0 {
			return nil, engerrors.Schemaf(name, "column not found in source %s", s.name)
		}
	}

	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = logical.DefaultBatchSize
	}

	readFields := make([]arrow.Field, s.schema.Len())
	for i, f := range s.schema.Fields {
		dt := f.Type
		if dt == types.Categorical {
			dt = types.String
		}
		readFields[i] = arrow.Field{Name: f.Name, Type: dt.ArrowType(), Nullable: true}
	}

	rc, err := s.open()
	if err != nil {
		return nil, err
	}
	in, err := skipLines(rc, s.opts.SkipRows)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	r := csv.NewReader(in, arrow.NewSchema(readFields, nil), s.opts.readerOptions(mem, batchSize)...)

	outFields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		f, _ := full.Field(name)
		outFields[i] = arrow.Field{Name: f.Name, Type: f.Type.ArrowType(), Nullable: true}
	}
	remaining := int64(-1)
	if s.opts.NRows > 0 {
		remaining = int64(s.opts.NRows)
	}
	return &csvReader{
		refs:      atomic.NewInt64(1),
		source:    s.name,
		closer:    rc,
		r:         r,
		mem:       mem,
		cache:     types.NewStringCache(),
		schema:    arrow.NewSchema(outFields, nil),
		indices:   indices,
		remaining: remaining,
		nextRow:   s.opts.RowIndexOffset,
	}, nil
}

const rowIndexColumn = -1

// csvReader narrows the records of a csv.Reader to the scanned columns and
// adds the row index.
type csvReader struct {
	refs   *atomic.Int64
	source string
	closer io.Closer
	r      *csv.Reader

	mem     memory.Allocator
	cache   *types.StringCache
	schema  *arrow.Schema
	indices []int

	remaining int64 // rows left to read, negative if unbounded
	nextRow   int64 // row index of the next row

	cur arrow.Record
	err error
}

var _ array.RecordReader = (*csvReader)(nil)

func (r *csvReader) Schema() *arrow.Schema { return r.schema }
func (r *csvReader) Record() arrow.Record  { return r.cur }
func (r *csvReader) Err() error            { return r.err }

func (r *csvReader) Next() bool {
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	if r.err != nil || r.remaining == 0 || !r.r.Next() {
		if r.err == nil {
			if err := r.r.Err(); err != nil && err != io.EOF {
				r.err = errors.Wrapf(err, "reading csv source %s", r.source)
			}
		}
		return false
	}

	rec := r.r.Record()
	rows := rec.NumRows()
	if r.remaining > 0 && rows > r.remaining {
		rows = r.remaining
	}
	if r.remaining > 0 {
		r.remaining -= rows
	}

	cols := make([]arrow.Array, len(r.indices))
	for i, idx := range r.indices {
		if idx == rowIndexColumn {
			cols[i] = r.rowIndex(int(rows))
			continue
		}
		col := array.NewSlice(rec.Column(idx), 0, rows)
		if r.schema.Field(i).Type.ID() == arrow.DICTIONARY {
			cols[i] = arrowutil.EncodeCategorical(r.mem, col, r.cache)
			col.Release()
			continue
		}
		cols[i] = col
	}
	r.nextRow += rows
	r.cur = array.NewRecord(r.schema, cols, rows)
	for _, col := range cols {
		col.Release()
	}
	return true
}

func (r *csvReader) rowIndex(n int) arrow.Array {
	b := array.NewInt64Builder(r.mem)
	defer b.Release()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		b.Append(r.nextRow + int64(i))
	}
	return b.NewArray()
}

func (r *csvReader) Retain() { r.refs.Inc() }

func (r *csvReader) Release() {
	if r.refs.Dec() != 0 {
		return
	}
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	r.r.Release()
	_ = r.closer.Close()
}
