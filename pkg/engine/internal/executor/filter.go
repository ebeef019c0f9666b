package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
)

// newFilterPipeline keeps the rows of input that satisfy every predicate.
// Row-wise predicates are applied batch by batch. Predicates whose value at
// one row depends on other rows see the whole input at once.
func newFilterPipeline(predicates []logical.Expr, input Pipeline, ev *evaluator, in *arrow.Schema) Pipeline {
	apply := func(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
		return ev.filter(ctx, rec, predicates)
	}
	for _, pred := range predicates {
		if !logical.IsRowLocal(pred) {
			return materialize(ev.mem, in, input, apply)
		}
	}
	return mapBatches(input, apply)
}
