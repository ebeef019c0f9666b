package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/join"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/planner/physical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// matchFunc pairs the rows of the materialized join inputs.
type matchFunc func(ctx context.Context, left, right arrow.Record) (join.Indices, error)

// newJoinPipeline reads both inputs concurrently, matches their rows and
// gathers the output columns of node.
func newJoinPipeline(inputs []Pipeline, inputSchemas []*arrow.Schema, node physical.Node, ev *evaluator, match matchFunc) Pipeline {
	var (
		cols   = joinColumns(node)
		schema = node.Schema().ToArrow()
		done   = false
	)
	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (arrow.Record, error) {
		if done {
			return nil, EOF
		}
		done = true

		var (
			sides [2]arrow.Record
			g, _  = errgroup.WithContext(ctx)
		)
		for i := range sides {
			g.Go(func() error {
				rec, err := ReadAll(ctx, inputs[i], ev.mem, inputSchemas[i])
				sides[i] = rec
				return err
			})
		}
		err := g.Wait()
		defer func() {
			for _, rec := range sides {
				if rec != nil {
					rec.Release()
				}
			}
		}()
		if err != nil {
			return nil, err
		}

		idx, err := match(ctx, sides[0], sides[1])
		if err != nil {
			return nil, err
		}
		return ev.gather(sides[0], sides[1], idx, cols, schema)
	}, inputs...)
}

func joinColumns(node physical.Node) []join.OutputColumn {
	switch n := node.(type) {
	case *physical.HashJoin:
		return n.Columns
	case *physical.AsOfJoin:
		return n.Columns
	case *physical.CrossJoin:
		return n.Columns
	}
	return nil
}

// gather builds the join output from the matched row positions. Missing
// rows become nulls. Coalesced key columns take the right key where the
// left one is missing.
func (ev *evaluator) gather(left, right arrow.Record, idx join.Indices, cols []join.OutputColumn, schema *arrow.Schema) (arrow.Record, error) {
	out := make([]arrow.Array, 0, len(cols))
	for _, c := range cols {
		var arr arrow.Array
		switch c.Side {
		case join.SideLeft:
			arr = arrowutil.Take(ev.mem, left.Column(c.Index), idx.Left)
			if c.CoalesceIndex >= 0 {
				var err error
				if arr, err = ev.coalesceKey(arr, right.Column(c.CoalesceIndex), idx.Right, c); err != nil {
					releaseArrays(out)
					return nil, err
				}
			}
		case join.SideRight:
			arr = arrowutil.Take(ev.mem, right.Column(c.Index), idx.Right)
		}
		out = append(out, arr)
	}
	return ev.newRecord(schema, out, idx.Len())
}

// coalesceKey merges the taken left key with the right key column. It takes
// ownership of l.
func (ev *evaluator) coalesceKey(l, rightCol arrow.Array, rightIdx []int, c join.OutputColumn) (arrow.Array, error) {
	r := arrowutil.Take(ev.mem, rightCol, rightIdx)
	lc, err := coerce(ev.mem, l, c.Type, ev.cache, c.Name)
	if err != nil {
		r.Release()
		return nil, err
	}
	defer lc.Release()
	rc, err := coerce(ev.mem, r, c.Type, ev.cache, c.Name)
	if err != nil {
		return nil, err
	}
	defer rc.Release()
	return coalesce(ev.mem, c.Type, []arrow.Array{lc, rc}, ev.cache)
}

// evalKeys evaluates join key expressions on both sides and casts every
// pair of keys to their common type.
func (ev *evaluator) evalKeys(ctx context.Context, left, right arrow.Record, leftOn, rightOn []logical.Expr) ([]arrow.Array, []arrow.Array, error) {
	var lkeys, rkeys []arrow.Array
	fail := func(err error) ([]arrow.Array, []arrow.Array, error) {
		releaseArrays(lkeys)
		releaseArrays(rkeys)
		return nil, nil, err
	}
	for i := range leftOn {
		l, err := ev.eval(ctx, leftOn[i], left)
		if err != nil {
			return fail(err)
		}
		lkeys = append(lkeys, l)
		r, err := ev.eval(ctx, rightOn[i], right)
		if err != nil {
			return fail(err)
		}
		rkeys = append(rkeys, r)

		lt, _ := typeOfArray(l)
		rt, _ := typeOfArray(r)
		if lt == rt {
			continue
		}
		st, ok := types.Supertype(lt, rt)
		if !ok {
			return fail(errors.DataTypef(leftOn[i].String(), "cannot join %s with %s", lt, rt))
		}
		if lkeys[i], err = coerce(ev.mem, l, st, ev.cache, leftOn[i].String()); err != nil {
			lkeys[i] = nil
			return fail(err)
		}
		if rkeys[i], err = coerce(ev.mem, r, st, ev.cache, rightOn[i].String()); err != nil {
			rkeys[i] = nil
			return fail(err)
		}
	}
	return lkeys, rkeys, nil
}

func (c *Context) hashJoin(node *physical.HashJoin) matchFunc {
	return func(ctx context.Context, left, right arrow.Record) (join.Indices, error) {
		lkeys, rkeys, err := c.evaluator.evalKeys(ctx, left, right, node.LeftOn, node.RightOn)
		if err != nil {
			return join.Indices{}, err
		}
		defer releaseArrays(lkeys)
		defer releaseArrays(rkeys)

		return join.Hash(ctx, c.cfg.Pool,
			join.Input{Keys: lkeys, Rows: int(left.NumRows())},
			join.Input{Keys: rkeys, Rows: int(right.NumRows())},
			join.Options{Type: node.JoinType, Validate: node.Validate, JoinNulls: node.JoinNulls},
		)
	}
}

func (c *Context) asofJoin(node *physical.AsOfJoin) matchFunc {
	return func(ctx context.Context, left, right arrow.Record) (join.Indices, error) {
		leftOn := append([]logical.Expr{node.LeftOn}, colExprs(node.LeftBy)...)
		rightOn := append([]logical.Expr{node.RightOn}, colExprs(node.RightBy)...)
		lkeys, rkeys, err := c.evaluator.evalKeys(ctx, left, right, leftOn, rightOn)
		if err != nil {
			return join.Indices{}, err
		}
		defer releaseArrays(lkeys)
		defer releaseArrays(rkeys)

		nLeft := int(left.NumRows())
		matches, err := join.AsOf(ctx, c.cfg.Pool,
			join.AsOfInput{On: lkeys[0], By: lkeys[1:], Rows: nLeft},
			join.AsOfInput{On: rkeys[0], By: rkeys[1:], Rows: int(right.NumRows())},
			join.AsOfOptions{
				Strategy:     node.Strategy,
				Tolerance:    node.Tolerance,
				HasTolerance: node.HasTolerance,
				LeftName:     node.LeftOn.String(),
				RightName:    node.RightOn.String(),
			},
		)
		if err != nil {
			return join.Indices{}, err
		}
		return join.Indices{Left: arrowutil.Range(0, nLeft), Right: matches}, nil
	}
}

func (c *Context) crossJoin() matchFunc {
	return func(_ context.Context, left, right arrow.Record) (join.Indices, error) {
		return join.Cross(int(left.NumRows()), int(right.NumRows()), c.cfg.MaxCrossJoinRows)
	}
}

func colExprs(names []string) []logical.Expr {
	out := make([]logical.Expr, len(names))
	for i, name := range names {
		out[i] = logical.Col(name)
	}
	return out
}
