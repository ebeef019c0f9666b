package executor

import (
	"context"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
)

// newDistinctPipeline keeps the first row of every set of rows with equal
// values in subset, or in all columns if subset is empty. Nulls are equal
// to each other. Output rows keep their input order.
func newDistinctPipeline(subset []string, input Pipeline, ev *evaluator, in, schema *arrow.Schema) Pipeline {
	return materialize(ev.mem, in, input, func(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
		names := subset
		if len(names) == 0 {
			names = make([]string, schema.NumFields())
			for i, f := range schema.Fields() {
				names[i] = f.Name
			}
		}

		keys := make([]arrow.Array, 0, len(names))
		for _, name := range names {
			idx := rec.Schema().FieldIndices(name)
			if len(idx) == 0 {
				return nil, errors.Schemaf(name, "column not found")
			}
			keys = append(keys, rec.Column(idx[0]))
		}

		p, err := groups.Build(ctx, ev.pool, keys, int(rec.NumRows()), groups.Options{})
		if err != nil {
			return nil, err
		}
		first := groups.FirstRows(p)
		slices.Sort(first)

		out := arrowutil.TakeRecord(ev.mem, rec, first)
		defer out.Release()
		return ev.selectColumns(out, schema)
	})
}
