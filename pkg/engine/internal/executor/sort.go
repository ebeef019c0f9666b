package executor

import (
	"context"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
)

// newSortPipeline orders the rows of input by keys. The sort is stable. If
// fetch is positive only the first fetch rows are returned.
func newSortPipeline(keys []logical.SortKey, fetch int, input Pipeline, ev *evaluator, in, schema *arrow.Schema) Pipeline {
	return materialize(ev.mem, in, input, func(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
		var (
			arrs = make([]arrow.Array, 0, len(keys))
			accs = make([]arrowutil.Accessor, 0, len(keys))
		)
		defer func() { releaseArrays(arrs) }()
		for _, k := range keys {
			arr, err := ev.eval(ctx, k.Expr, rec)
			if err != nil {
				return nil, err
			}
			arrs = append(arrs, arr)
			accs = append(accs, arrowutil.NewAccessor(arr))
		}

		order := arrowutil.Range(0, int(rec.NumRows()))
		slices.SortStableFunc(order, func(a, b int) int {
			for i, k := range keys {
				if c := compareSortKey(&accs[i], a, b, k); c != 0 {
					return c
				}
			}
			return 0
		})
		if fetch > 0 && fetch < len(order) {
			order = order[:fetch]
		}
		if err := ev.pool.Check(ctx); err != nil {
			return nil, err
		}

		sorted := arrowutil.TakeRecord(ev.mem, rec, order)
		defer sorted.Release()
		return ev.selectColumns(sorted, schema)
	})
}

// compareSortKey orders rows a and b of acc. Null placement does not depend
// on the sort direction.
func compareSortKey(acc *arrowutil.Accessor, a, b int, k logical.SortKey) int {
	an, bn := acc.IsNull(a), acc.IsNull(b)
	switch {
	case an && bn:
		return 0
	case an || bn:
		c := -1
		if an == k.NullsLast {
			c = 1
		}
		return c
	}
	c := acc.Compare(a, acc, b)
	if k.Descending {
		c = -c
	}
	return c
}
