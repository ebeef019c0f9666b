package join

import (
	"context"
	"fmt"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/dolthub/swiss"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Indices pairs left and right row positions of a join result. A position
// of -1 is a missing row. Right is nil for semi and anti joins.
type Indices struct {
	Left, Right []int
}

// Len returns the number of output rows.
func (x Indices) Len() int { return len(x.Left) }

// Options configure an equality join.
type Options struct {
	Type     types.JoinType
	Validate types.JoinValidation
	// JoinNulls makes null keys match each other.
	JoinNulls bool
}

// Input holds the key columns of one join side. Keys of both sides must
// already share a common type per position.
type Input struct {
	Keys []arrow.Array
	Rows int
}

func (in Input) accessors() []arrowutil.Accessor {
	accs := make([]arrowutil.Accessor, len(in.Keys))
	for i, k := range in.Keys {
		accs[i] = arrowutil.NewAccessor(k)
	}
	return accs
}

type pair struct{ l, r int }

// Hash performs an inner, left, outer, semi or anti equality join.
//
// The hash table is built over the smaller input and probed with the other.
// Output rows follow left row order, with matches of one left row in right
// row order. Outer joins append unmatched right rows in right row order.
func Hash(ctx context.Context, pool *workers.Pool, left, right Input, opts Options) (Indices, error) {
	if len(left.Keys) != len(right.Keys) {
		return Indices{}, fmt.Errorf("join key arity mismatch: %d left, %d right", len(left.Keys), len(right.Keys))
	}
	switch opts.Type {
	case types.JoinTypeInner, types.JoinTypeLeft, types.JoinTypeOuter, types.JoinTypeSemi, types.JoinTypeAnti:
	default:
		return Indices{}, fmt.Errorf("unsupported equality join type %s", opts.Type)
	}

	if err := Validate(ctx, pool, left, right, opts.Validate, opts.JoinNulls); err != nil {
		return Indices{}, err
	}

	lacc, racc := left.accessors(), right.accessors()
	lh, err := groups.HashRows(ctx, pool, lacc, left.Rows)
	if err != nil {
		return Indices{}, err
	}
	rh, err := groups.HashRows(ctx, pool, racc, right.Rows)
	if err != nil {
		return Indices{}, err
	}

	var pairs []pair
	if right.Rows <= left.Rows {
		t := newTable(racc, rh, right.Rows, opts.JoinNulls)
		pairs, err = probe(ctx, pool, t, lacc, lh, left.Rows, opts.JoinNulls, false)
	} else {
		t := newTable(lacc, lh, left.Rows, opts.JoinNulls)
		pairs, err = probe(ctx, pool, t, racc, rh, right.Rows, opts.JoinNulls, true)
		sort.SliceStable(pairs, func(i, j int) bool {
			if pairs[i].l != pairs[j].l {
				return pairs[i].l < pairs[j].l
			}
			return pairs[i].r < pairs[j].r
		})
	}
	if err != nil {
		return Indices{}, err
	}
	return assemble(opts.Type, pairs, left.Rows, right.Rows), nil
}

// assemble turns matched pairs, sorted by left row, into the output of the
// given join type.
func assemble(typ types.JoinType, pairs []pair, nLeft, nRight int) Indices {
	var out Indices
	switch typ {
	case types.JoinTypeInner:
		out.Left, out.Right = make([]int, len(pairs)), make([]int, len(pairs))
		for i, p := range pairs {
			out.Left[i], out.Right[i] = p.l, p.r
		}

	case types.JoinTypeLeft, types.JoinTypeOuter:
		next := 0
		for l := 0; l < nLeft; l++ {
			if next >= len(pairs) || pairs[next].l != l {
				out.Left = append(out.Left, l)
				out.Right = append(out.Right, -1)
				continue
			}
			for ; next < len(pairs) && pairs[next].l == l; next++ {
				out.Left = append(out.Left, l)
				out.Right = append(out.Right, pairs[next].r)
			}
		}
		if typ == types.JoinTypeOuter {
			matched := make([]bool, nRight)
			for _, p := range pairs {
				matched[p.r] = true
			}
			for r, ok := range matched {
				if !ok {
					out.Left = append(out.Left, -1)
					out.Right = append(out.Right, r)
				}
			}
		}

	case types.JoinTypeSemi, types.JoinTypeAnti:
		matched := make([]bool, nLeft)
		for _, p := range pairs {
			matched[p.l] = true
		}
		want := typ == types.JoinTypeSemi
		out.Left = []int{}
		for l, ok := range matched {
			if ok == want {
				out.Left = append(out.Left, l)
			}
		}
	}
	return out
}

// table is a hash index over the key rows of one input.
type table struct {
	accs    []arrowutil.Accessor
	buckets *swiss.Map[uint64, []int]
}

// newTable indexes rows [0, n). The table is read-only once built and may
// be probed from several goroutines.
func newTable(accs []arrowutil.Accessor, hashes []uint64, n int, joinNulls bool) *table {
	t := &table{accs: accs, buckets: swiss.NewMap[uint64, []int](uint32(n))}
	for row := 0; row < n; row++ {
		if !joinNulls && anyNull(accs, row) {
			continue
		}
		rows, _ := t.buckets.Get(hashes[row])
		t.buckets.Put(hashes[row], append(rows, row))
	}
	return t
}

// lookup calls fn for every indexed row equal to row of probe, in ascending
// row order.
func (t *table) lookup(probe []arrowutil.Accessor, row int, h uint64, fn func(int)) {
	cands, _ := t.buckets.Get(h)
	for _, cand := range cands {
		if keysEqual(t.accs, cand, probe, row) {
			fn(cand)
		}
	}
}

// probe looks up every row of the probing side. If swapped, the table holds
// the left side and the probing side is the right.
func probe(ctx context.Context, pool *workers.Pool, t *table, accs []arrowutil.Accessor, hashes []uint64, n int, joinNulls, swapped bool) ([]pair, error) {
	chunks, err := workers.Map(ctx, pool, n, func(_ context.Context, c workers.Chunk) ([]pair, error) {
		var out []pair
		for row := c.Lo; row < c.Hi; row++ {
			if !joinNulls && anyNull(accs, row) {
				continue
			}
			t.lookup(accs, row, hashes[row], func(match int) {
				if swapped {
					out = append(out, pair{l: match, r: row})
				} else {
					out = append(out, pair{l: row, r: match})
				}
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	var total int
	for _, c := range chunks {
		total += len(c)
	}
	pairs := make([]pair, 0, total)
	for _, c := range chunks {
		pairs = append(pairs, c...)
	}
	return pairs, nil
}

func keysEqual(a []arrowutil.Accessor, i int, b []arrowutil.Accessor, j int) bool {
	for k := range a {
		if !a[k].Equal(i, &b[k], j) {
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
