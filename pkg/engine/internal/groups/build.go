package groups

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cespare/xxhash/v2"
	"github.com/dolthub/swiss"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
)

// Options control how groups are built.
type Options struct {
	// Sorted declares that rows with equal keys are already adjacent. The
	// grouping then uses a single linear scan and returns a [*Slice].
	Sorted bool
	// DropNullKeys excludes rows with a null in any key column.
	DropNullKeys bool
	// SortGroups emits groups in ascending key order, nulls first, instead of
	// first-occurrence order.
	SortGroups bool
}

// Build partitions rows [0, n) by the values of keys. Without keys, all rows
// form a single group.
func Build(ctx context.Context, pool *workers.Pool, keys []arrow.Array, n int, opts Options) (Proxy, error) {
	if len(keys) == 0 {
		return Single(n), nil
	}

	accs := make([]arrowutil.Accessor, len(keys))
	for i, k := range keys {
		accs[i] = arrowutil.NewAccessor(k)
	}

	var (
		p   Proxy
		err error
	)
	if opts.Sorted {
		p = buildSorted(accs, n, opts.DropNullKeys)
	} else {
		p, err = buildHashed(ctx, pool, accs, n, opts.DropNullKeys)
		if err != nil {
			return nil, err
		}
	}

	if opts.SortGroups {
		p = sortGroups(p, accs)
	}
	return p, nil
}

func buildSorted(accs []arrowutil.Accessor, n int, dropNulls bool) *Slice {
	s := &Slice{}
	start := 0
	for row := 1; row <= n; row++ {
		if row < n && rowsEqual(accs, row-1, row) {
			continue
		}
		if !dropNulls || !anyNull(accs, start) {
			s.Groups = append(s.Groups, [2]int{start, row - start})
		}
		start = row
	}
	return s
}

func buildHashed(ctx context.Context, pool *workers.Pool, accs []arrowutil.Accessor, n int, dropNulls bool) (*Idx, error) {
	hashes, err := HashRows(ctx, pool, accs, n)
	if err != nil {
		return nil, err
	}

	var (
		table = swiss.NewMap[uint64, []int32](uint32(n/4 + 1))
		first []int
		all   [][]int
	)
	for row := 0; row < n; row++ {
		if dropNulls && anyNull(accs, row) {
			continue
		}

		h := hashes[row]
		gid := -1
		cands, _ := table.Get(h)
		for _, cand := range cands {
			if rowsEqual(accs, first[cand], row) {
				gid = int(cand)
				break
			}
		}
		if gid < 0 {
			gid = len(first)
			first = append(first, row)
			all = append(all, nil)
			table.Put(h, append(cands, int32(gid)))
		}
		all[gid] = append(all[gid], row)
	}

	if err := pool.Check(ctx); err != nil {
		return nil, err
	}
	return &Idx{All: all}, nil
}

// HashRows computes the hash of every row's key tuple. Rows are hashed in
// parallel chunks.
func HashRows(ctx context.Context, pool *workers.Pool, accs []arrowutil.Accessor, n int) ([]uint64, error) {
	hashes := make([]uint64, n)
	err := pool.Run(ctx, n, func(_ context.Context, c workers.Chunk) error {
		d := xxhash.New()
		for row := c.Lo; row < c.Hi; row++ {
			d.Reset()
			for i := range accs {
				accs[i].Hash(d, row)
			}
			hashes[row] = d.Sum64()
		}
		return nil
	})
	return hashes, err
}

func rowsEqual(accs []arrowutil.Accessor, a, b int) bool {
	for i := range accs {
		if !accs[i].Equal(a, &accs[i], b) {
			return false
		}
	}
	return true
}

func anyNull(accs []arrowutil.Accessor, row int) bool {
	for i := range accs {
		if accs[i].IsNull(row) {
			return true
		}
	}
	return false
}

// compareRows orders the key tuples of rows a and b, nulls first.
func compareRows(accs []arrowutil.Accessor, a, b int) int {
	for i := range accs {
		an, bn := accs[i].IsNull(a), accs[i].IsNull(b)
		switch {
		case an && bn:
			continue
		case an:
			return -1
		case bn:
			return 1
		}
		if c := accs[i].Compare(a, &accs[i], b); c != 0 {
			return c
		}
	}
	return 0
}

func sortGroups(p Proxy, accs []arrowutil.Accessor) Proxy {
	order := make([]int, p.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return compareRows(accs, p.First(order[i]), p.First(order[j])) < 0
	})
	return Reorder(p, order)
}
