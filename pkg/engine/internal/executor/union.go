package executor

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
)

// newUnionPipeline returns the batches of every input in input order.
// Columns are matched by position and take the names of schema.
func newUnionPipeline(inputs []Pipeline, ev *evaluator, schema *arrow.Schema) Pipeline {
	current := 0
	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (arrow.Record, error) {
		for current < len(inputs) {
			batch, err := inputs[current].Read(ctx)
			if errors.Is(err, EOF) {
				current++
				continue
			} else if err != nil {
				return nil, err
			}

			cols := batch.Columns()
			for _, col := range cols {
				col.Retain()
			}
			rows := int(batch.NumRows())
			batch.Release()
			return ev.newRecord(schema, cols, rows)
		}
		return nil, EOF
	}, inputs...)
}
