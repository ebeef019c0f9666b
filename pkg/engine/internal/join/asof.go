package join

import (
	"context"
	"math"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// AsOfOptions configure an as-of join.
type AsOfOptions struct {
	Strategy types.AsOfStrategy

	// Tolerance is the largest allowed distance between matched keys, in key
	// units (nanoseconds for temporal keys). It is ignored unless
	// HasTolerance is set.
	Tolerance    float64
	HasTolerance bool

	// LeftName and RightName identify the as-of keys in errors.
	LeftName, RightName string
}

// AsOfInput is one side of an as-of join: the ordered key and optional
// exact-match "by" keys.
type AsOfInput struct {
	On   arrow.Array
	By   []arrow.Array
	Rows int
}

// AsOf matches every left row to at most one right row and returns the
// matched right position per left row, or -1.
//
// Both on-keys must be non-decreasing, ignoring nulls. Rows with a null
// on-key never match. Backward picks the last right row whose key is at most
// the left key, forward the first right row whose key is at least the left
// key, and nearest the closer of both, preferring backward on ties.
func AsOf(ctx context.Context, pool *workers.Pool, left, right AsOfInput, opts AsOfOptions) ([]int, error) {
	if len(left.By) != len(right.By) {
		return nil, errors.Schemaf(opts.LeftName, "as-of join needs the same number of by keys on both sides, got %d and %d", len(left.By), len(right.By))
	}
	if err := checkAsOfKey(left.On, opts.LeftName); err != nil {
		return nil, err
	}
	if err := checkAsOfKey(right.On, opts.RightName); err != nil {
		return nil, err
	}

	lon, ron := arrowutil.NewAccessor(left.On), arrowutil.NewAccessor(right.On)
	if err := checkSorted(&lon, left.Rows, opts.LeftName); err != nil {
		return nil, err
	}
	if err := checkSorted(&ron, right.Rows, opts.RightName); err != nil {
		return nil, err
	}

	candidates, lookup, err := asofCandidates(ctx, pool, &ron, left, right)
	if err != nil {
		return nil, err
	}

	matches := make([]int, left.Rows)
	err = pool.Run(ctx, left.Rows, func(_ context.Context, c workers.Chunk) error {
		for row := c.Lo; row < c.Hi; row++ {
			matches[row] = -1
			if lon.IsNull(row) {
				continue
			}
			rows := candidates(lookup(row))
			matches[row] = searchAsOf(&lon, row, &ron, rows, opts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func checkAsOfKey(arr arrow.Array, name string) error {
	dt, err := types.FromArrow(arr.DataType())
	if err != nil {
		return errors.DataTypef(name, "%s", err)
	}
	if !dt.IsNumeric() && !dt.IsTemporal() {
		return errors.DataTypef(name, "as-of join key must be numeric or temporal, got %s", dt)
	}
	return nil
}

func checkSorted(acc *arrowutil.Accessor, n int, name string) error {
	prev := -1
	for row := 0; row < n; row++ {
		if acc.IsNull(row) {
			continue
		}
		if prev >= 0 && acc.Compare(prev, acc, row) > 0 {
			return errors.Orderf(name, "as-of join key is not sorted ascending at row %d", row)
		}
		prev = row
	}
	return nil
}

// asofCandidates partitions the right rows with a non-null on-key by their
// by-keys. The returned lookup maps a left row to its partition, or -1.
func asofCandidates(ctx context.Context, pool *workers.Pool, ron *arrowutil.Accessor, left, right AsOfInput) (func(int) []int, func(int) int, error) {
	if len(right.By) == 0 {
		rows := make([]int, 0, right.Rows)
		for row := 0; row < right.Rows; row++ {
			if !ron.IsNull(row) {
				rows = append(rows, row)
			}
		}
		return func(int) []int { return rows }, func(int) int { return 0 }, nil
	}

	byRight := Input{Keys: right.By, Rows: right.Rows}.accessors()
	byLeft := Input{Keys: left.By, Rows: left.Rows}.accessors()

	p, err := groups.Build(ctx, pool, right.By, right.Rows, groups.Options{DropNullKeys: true})
	if err != nil {
		return nil, nil, err
	}
	rh, err := groups.HashRows(ctx, pool, byRight, right.Rows)
	if err != nil {
		return nil, nil, err
	}
	lh, err := groups.HashRows(ctx, pool, byLeft, left.Rows)
	if err != nil {
		return nil, nil, err
	}

	var (
		parts   = make([][]int, p.Len())
		byFirst = make(map[uint64][]int, p.Len())
	)
	for g := range parts {
		p.Each(g, func(row int) {
			if !ron.IsNull(row) {
				parts[g] = append(parts[g], row)
			}
		})
		first := p.First(g)
		byFirst[rh[first]] = append(byFirst[rh[first]], g)
	}

	lookup := func(row int) int {
		if anyNull(byLeft, row) {
			return -1
		}
		for _, g := range byFirst[lh[row]] {
			if keysEqual(byRight, p.First(g), byLeft, row) {
				return g
			}
		}
		return -1
	}
	candidates := func(g int) []int {
		if g < 0 {
			return nil
		}
		return parts[g]
	}
	return candidates, lookup, nil
}

// searchAsOf finds the match for left row row among the sorted right rows.
func searchAsOf(lon *arrowutil.Accessor, row int, ron *arrowutil.Accessor, rows []int, opts AsOfOptions) int {
	// First candidate with key > left key; the one before it is the last
	// key <= left key.
	after := sort.Search(len(rows), func(i int) bool { return ron.Compare(rows[i], lon, row) > 0 })
	// First candidate with key >= left key.
	atOrAfter := sort.Search(len(rows), func(i int) bool { return ron.Compare(rows[i], lon, row) >= 0 })

	backward, forward := -1, -1
	if after > 0 {
		backward = rows[after-1]
	}
	if atOrAfter < len(rows) {
		forward = rows[atOrAfter]
	}

	var match int
	switch opts.Strategy {
	case types.AsOfBackward:
		match = backward
	case types.AsOfForward:
		match = forward
	case types.AsOfNearest:
		switch {
		case backward < 0:
			match = forward
		case forward < 0:
			match = backward
		case distance(lon, row, ron, forward) < distance(lon, row, ron, backward):
			match = forward
		default:
			match = backward
		}
	}

	if match >= 0 && opts.HasTolerance && distance(lon, row, ron, match) > opts.Tolerance {
		return -1
	}
	return match
}

func distance(a *arrowutil.Accessor, i int, b *arrowutil.Accessor, j int) float64 {
	if a.Kind() == arrowutil.KindInt && b.Kind() == arrowutil.KindInt {
		d := a.Int(i) - b.Int(j)
		if d < 0 {
			d = -d
		}
		return float64(d)
	}
	return math.Abs(a.Float(i) - b.Float(j))
}
