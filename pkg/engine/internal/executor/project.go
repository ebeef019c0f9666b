package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
)

// newProjectionPipeline computes, adds or drops columns of input, depending
// on mode. Row-wise projections are applied batch by batch; all others see
// the whole input at once.
func newProjectionPipeline(exprs []logical.Expr, mode logical.ProjectionMode, input Pipeline, ev *evaluator, in, schema *arrow.Schema) Pipeline {
	if mode == logical.ProjectionDrop {
		return mapBatches(input, func(_ context.Context, batch arrow.Record) (arrow.Record, error) {
			return ev.selectColumns(batch, schema)
		})
	}

	scalar := mode == logical.ProjectionSelect && len(exprs) > 0
	rowLocal := true
	for _, e := range exprs {
		scalar = scalar && logical.IsScalar(e)
		rowLocal = rowLocal && logical.IsRowLocal(e)
	}

	project := func(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
		return ev.project(ctx, rec, exprs, schema, scalar)
	}
	if rowLocal && !scalar {
		return mapBatches(input, project)
	}
	return materialize(ev.mem, in, input, project)
}

// newWindowPipeline adds the window expressions to the columns of input.
// Partitions may span batches, so the whole input is read first.
func newWindowPipeline(exprs []logical.Expr, input Pipeline, ev *evaluator, in, schema *arrow.Schema) Pipeline {
	return materialize(ev.mem, in, input, func(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
		return ev.project(ctx, rec, exprs, schema, false)
	})
}

// project evaluates exprs over rec and lays out the output columns of
// schema: computed columns by output name, the rest copied from rec. With
// scalar set every expression is reduced over all rows and the result has
// a single row.
func (ev *evaluator) project(ctx context.Context, rec arrow.Record, exprs []logical.Expr, schema *arrow.Schema, scalar bool) (arrow.Record, error) {
	computed := make(map[string]arrow.Array, len(exprs))
	defer func() {
		for _, arr := range computed {
			arr.Release()
		}
	}()

	rows := int(rec.NumRows())
	all := groups.Single(rows)
	for _, e := range exprs {
		var (
			arr arrow.Array
			err error
		)
		if scalar {
			arr, err = ev.evalGrouped(ctx, e, rec, all)
		} else {
			arr, err = ev.eval(ctx, e, rec)
		}
		if err != nil {
			return nil, err
		}
		computed[logical.OutputName(e)] = arr
	}
	if scalar {
		rows = 1
	}

	cols := make([]arrow.Array, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		if arr, ok := computed[f.Name]; ok {
			arr.Retain()
			cols = append(cols, arr)
			continue
		}
		idx := rec.Schema().FieldIndices(f.Name)
		if len(idx) == 0 {
			releaseArrays(cols)
			return nil, errors.Schemaf(f.Name, "column not found")
		}
		col := rec.Column(idx[0])
		col.Retain()
		cols = append(cols, col)
	}
	return ev.newRecord(schema, cols, rows)
}

// mapBatches applies fn to every batch of input, skipping empty results.
func mapBatches(input Pipeline, fn func(context.Context, arrow.Record) (arrow.Record, error)) Pipeline {
	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (arrow.Record, error) {
		for {
			batch, err := inputs[0].Read(ctx)
			if err != nil {
				return nil, err
			}
			out, err := fn(ctx, batch)
			batch.Release()
			if err != nil {
				return nil, err
			}
			if out.NumRows() == 0 {
				out.Release()
				continue
			}
			return out, nil
		}
	}, input)
}
