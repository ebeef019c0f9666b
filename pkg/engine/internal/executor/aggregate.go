package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/planner/physical"
)

// newAggregatePipeline groups input by the node's keys and computes one row
// per group: the key values followed by the aggregates. Groups appear in
// order of first occurrence unless the node sorts them.
func newAggregatePipeline(node *physical.Aggregate, input Pipeline, ev *evaluator, in, schema *arrow.Schema) Pipeline {
	return materialize(ev.mem, in, input, func(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
		keys := make([]arrow.Array, 0, len(node.Keys))
		defer func() { releaseArrays(keys) }()
		for _, k := range node.Keys {
			key, err := ev.eval(ctx, k, rec)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}

		p, err := groups.Build(ctx, ev.pool, keys, int(rec.NumRows()), groups.Options{
			Sorted:       node.Sorted,
			DropNullKeys: node.DropNullKeys,
			SortGroups:   node.SortGroups,
		})
		if err != nil {
			return nil, err
		}

		var (
			first = groups.FirstRows(p)
			cols  = make([]arrow.Array, 0, len(keys)+len(node.Aggs))
		)
		for _, key := range keys {
			cols = append(cols, arrowutil.Take(ev.mem, key, first))
		}
		for _, agg := range node.Aggs {
			arr, err := ev.evalGrouped(ctx, agg, rec, p)
			if err != nil {
				releaseArrays(cols)
				return nil, err
			}
			cols = append(cols, arr)
		}
		return ev.newRecord(schema, cols, p.Len())
	})
}
