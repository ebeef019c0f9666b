package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// newRecord assembles a record of the given schema. It takes ownership of
// cols and casts columns whose type differs from their field.
func (ev *evaluator) newRecord(schema *arrow.Schema, cols []arrow.Array, rows int) (arrow.Record, error) {
	defer func() { releaseArrays(cols) }()
	if len(cols) != schema.NumFields() {
		return nil, errors.Shapef("", "got %d columns for a schema of %d fields", len(cols), schema.NumFields())
	}
	for i, f := range schema.Fields() {
		if cols[i].Len() != rows {
			return nil, errors.Shapef(f.Name, "column has %d rows, expected %d", cols[i].Len(), rows)
		}
		if arrow.TypeEqual(cols[i].DataType(), f.Type) {
			continue
		}
		dt, err := types.FromArrow(f.Type)
		if err != nil {
			return nil, errors.DataTypef(f.Name, "%s", err)
		}
		col := cols[i]
		cols[i] = nil
		if cols[i], err = coerce(ev.mem, col, dt, ev.cache, f.Name); err != nil {
			return nil, err
		}
	}
	return array.NewRecord(schema, cols, int64(rows)), nil
}

// selectColumns returns the columns of rec named by schema, in schema order.
func (ev *evaluator) selectColumns(rec arrow.Record, schema *arrow.Schema) (arrow.Record, error) {
	cols := make([]arrow.Array, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		idx := rec.Schema().FieldIndices(f.Name)
		if len(idx) == 0 {
			releaseArrays(cols)
			return nil, errors.Schemaf(f.Name, "column not found")
		}
		col := rec.Column(idx[0])
		col.Retain()
		cols = append(cols, col)
	}
	return ev.newRecord(schema, cols, int(rec.NumRows()))
}

// filter keeps the rows of rec for which every predicate is true. The
// predicates are applied in order, each to the rows kept by the previous
// ones. The caller keeps ownership of rec.
func (ev *evaluator) filter(ctx context.Context, rec arrow.Record, predicates []logical.Expr) (arrow.Record, error) {
	rec.Retain()
	for _, pred := range predicates {
		mask, err := ev.eval(ctx, pred, rec)
		if err != nil {
			rec.Release()
			return nil, err
		}
		selected, err := selection(mask, pred.String())
		mask.Release()
		if err != nil {
			rec.Release()
			return nil, err
		}
		if len(selected) == int(rec.NumRows()) {
			continue
		}
		next := arrowutil.TakeRecord(ev.mem, rec, selected)
		rec.Release()
		rec = next
	}
	return rec, nil
}

// selection returns the rows where mask is true. Null counts as false.
func selection(mask arrow.Array, subject string) ([]int, error) {
	switch mask.DataType().ID() {
	case arrow.NULL:
		return []int{}, nil
	case arrow.BOOL:
	default:
		return nil, errors.DataTypef(subject, "predicate must be Bool, got %s", mask.DataType())
	}

	var (
		bools = mask.(*array.Boolean)
		rows  = make([]int, 0, mask.Len())
	)
	for i := 0; i < mask.Len(); i++ {
		if bools.IsValid(i) && bools.Value(i) {
			rows = append(rows, i)
		}
	}
	return rows, nil
}
