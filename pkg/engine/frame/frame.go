// Package frame implements Frame, an immutable table of named, equal-length
// Arrow columns.
package frame

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Column is a named Arrow array.
type Column struct {
	Name  string
	Array arrow.Array
}

// Frame is an ordered set of named, equal-length columns with unique names.
//
// Frames are immutable and reference counted. Clone shares the columns with
// the original; every Frame must be released exactly once.
type Frame struct {
	rec    arrow.Record
	schema types.Schema
}

// New creates a frame from columns. The frame retains the column arrays; the
// caller keeps its own references.
func New(cols ...Column) (*Frame, error) {
	fields := make([]arrow.Field, len(cols))
	arrs := make([]arrow.Array, len(cols))
	seen := make(map[string]struct{}, len(cols))

	var rows int64 = -1
	for i, col := range cols {
		if _, ok := seen[col.Name]; ok {
			return nil, errors.Schemaf(col.Name, "duplicate column name")
		}
		seen[col.Name] = struct{}{}

		if col.Array == nil {
			return nil, errors.Schemaf(col.Name, "column has no values")
		}
		if rows >= 0 && int64(col.Array.Len()) != rows {
			return nil, errors.Shapef(col.Name, "column has %d rows, expected %d", col.Array.Len(), rows)
		}
		rows = int64(col.Array.Len())

		if _, err := types.FromArrow(col.Array.DataType()); err != nil {
			return nil, errors.DataTypef(col.Name, "%s", err)
		}
		fields[i] = arrow.Field{Name: col.Name, Type: col.Array.DataType(), Nullable: true}
		arrs[i] = col.Array
	}
	if rows < 0 {
		rows = 0
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrs, rows)
	return FromRecord(rec)
}

// FromRecord wraps rec in a frame, taking ownership of the caller's
// reference.
func FromRecord(rec arrow.Record) (*Frame, error) {
	schema, err := types.SchemaFromArrow(rec.Schema())
	if err != nil {
		rec.Release()
		return nil, errors.DataTypef("", "%s", err)
	}

	seen := make(map[string]struct{}, len(schema.Fields))
	for _, f := range schema.Fields {
		if _, ok := seen[f.Name]; ok {
			rec.Release()
			return nil, errors.Schemaf(f.Name, "duplicate column name")
		}
		seen[f.Name] = struct{}{}
	}
	return &Frame{rec: rec, schema: schema}, nil
}

// Empty returns a frame with the given schema and no rows.
func Empty(mem memory.Allocator, schema types.Schema) *Frame {
	cols := make([]arrow.Array, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = arrowutil.Nulls(mem, f.Type, 0)
	}
	rec := array.NewRecord(schema.ToArrow(), cols, 0)
	for _, col := range cols {
		col.Release()
	}
	return &Frame{rec: rec, schema: schema}
}

// Record returns the frame's underlying record. The record is owned by the
// frame; callers that keep it must Retain it.
func (f *Frame) Record() arrow.Record { return f.rec }

// Schema returns the frame's schema.
func (f *Frame) Schema() types.Schema { return f.schema }

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return int(f.rec.NumRows()) }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return int(f.rec.NumCols()) }

// Column returns the column called name.
func (f *Frame) Column(name string) (arrow.Array, error) {
	idx := f.schema.Index(name)
	if idx < 0 {
		return nil, errors.Schemaf(name, "column not found")
	}
	return f.rec.Column(idx), nil
}

// Columns returns the frame's columns in order.
func (f *Frame) Columns() []Column {
	cols := make([]Column, f.NumCols())
	for i := range cols {
		cols[i] = Column{Name: f.schema.Fields[i].Name, Array: f.rec.Column(i)}
	}
	return cols
}

// Clone returns a frame sharing f's columns.
func (f *Frame) Clone() *Frame {
	f.rec.Retain()
	return &Frame{rec: f.rec, schema: f.schema}
}

// Release releases the frame's reference to its columns.
func (f *Frame) Release() {
	if f != nil && f.rec != nil {
		f.rec.Release()
	}
}

// Values returns the values of the named column as Go values. Nulls are
// returned as nil.
func (f *Frame) Values(name string) ([]any, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	acc := arrowutil.NewAccessor(col)
	out := make([]any, col.Len())
	for i := range out {
		out[i] = acc.Value(i)
	}
	return out, nil
}

// Rows returns the frame's rows as slices of Go values in column order.
func (f *Frame) Rows() [][]any {
	accs := make([]arrowutil.Accessor, f.NumCols())
	for i := range accs {
		accs[i] = arrowutil.NewAccessor(f.rec.Column(i))
	}

	rows := make([][]any, f.NumRows())
	for r := range rows {
		row := make([]any, len(accs))
		for c := range accs {
			row[c] = accs[c].Value(r)
		}
		rows[r] = row
	}
	return rows
}

// String renders the frame as a table. It is intended for debugging and
// small frames.
func (f *Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "shape: (%d, %d)\n", f.NumRows(), f.NumCols())
	sb.WriteString(strings.Join(f.schema.Names(), "\t"))
	sb.WriteByte('\n')
	for _, row := range f.Rows() {
		for i, v := range row {
			if i > 0 {
				sb.WriteByte('\t')
			}
			if v == nil {
				sb.WriteString("null")
				continue
			}
			fmt.Fprint(&sb, v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
