package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// NewLimitPipeline returns the rows [offset, offset+length) of input.
func NewLimitPipeline(input Pipeline, offset, length int) *GenericPipeline {
	// offsetRemaining and limitRemaining shrink as batches pass through,
	// since both may cross batch boundaries.
	var (
		offsetRemaining = int64(offset)
		limitRemaining  = int64(length)
	)

	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (arrow.Record, error) {
		for {
			if limitRemaining <= 0 {
				return nil, EOF
			}

			batch, err := inputs[0].Read(ctx)
			if err != nil {
				return nil, err
			}

			// Slice the batch to the rows still wanted, constrained to the
			// bounds of the batch.
			start := min(offsetRemaining, batch.NumRows())
			end := min(start+limitRemaining, batch.NumRows())
			offsetRemaining -= start
			limitRemaining -= end - start

			if end-start == 0 {
				batch.Release()
				continue
			}
			if start == 0 && end == batch.NumRows() {
				return batch, nil
			}
			out := batch.NewSlice(start, end)
			batch.Release()
			return out, nil
		}
	}, input)
}
