// Package aggregate computes per-group aggregates over a grouping index.
//
// Every aggregate is expressed as a state that can absorb rows and be merged
// with another state of the same kind. Groups are distributed across workers
// in contiguous chunks; a single large group is split into row chunks whose
// partial states are merged in chunk order. Results are therefore independent
// of the number of workers.
package aggregate

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Options configure an aggregation.
type Options struct {
	// Quantile is the requested quantile for [types.AggregationTypeQuantile],
	// in [0, 1].
	Quantile float64
	// SumNullPolicy decides the sum of a group without non-null values.
	SumNullPolicy types.SumNullPolicy
	// Subject names the aggregated expression in errors.
	Subject string
}

// Grouped applies op to values for every group of p and returns one value
// per group, in group order.
func Grouped(ctx context.Context, pool *workers.Pool, mem memory.Allocator, op types.AggregationType, values arrow.Array, p groups.Proxy, opts Options) (arrow.Array, error) {
	inType, err := types.FromArrow(values.DataType())
	if err != nil {
		return nil, errors.DataTypef(opts.Subject, "%s", err)
	}
	outType, ok := op.ResultType(inType)
	if !ok {
		return nil, errors.DataTypef(opts.Subject, "cannot compute %s of %s", op, inType)
	}

	acc := arrowutil.NewAccessor(values)

	switch op {
	case types.AggregationTypeFirst:
		positions := make([]int, p.Len())
		for g := range positions {
			positions[g] = p.First(g)
		}
		return arrowutil.Take(mem, values, positions), nil

	case types.AggregationTypeLast:
		positions := make([]int, p.Len())
		for g := range positions {
			positions[g] = p.Last(g)
		}
		return arrowutil.Take(mem, values, positions), nil
	}

	k, err := kernelFor(op, inType, outType, &acc, opts)
	if err != nil {
		return nil, err
	}
	states, err := computeStates(ctx, pool, k, p)
	if err != nil {
		return nil, err
	}
	return k.finish(mem, values, states)
}

// state accumulates the rows of one group.
type state interface {
	add(row int)
	merge(other state)
}

type kernel struct {
	newState func() state
	finish   func(mem memory.Allocator, values arrow.Array, states []state) (arrow.Array, error)
}

func computeStates(ctx context.Context, pool *workers.Pool, k kernel, p groups.Proxy) ([]state, error) {
	states := make([]state, p.Len())

	if p.Len() == 1 && p.Size(0) > pool.ChunkSize() {
		rows := p.Rows(0)
		partials, err := workers.Map(ctx, pool, len(rows), func(_ context.Context, c workers.Chunk) (state, error) {
			s := k.newState()
			for _, row := range rows[c.Lo:c.Hi] {
				s.add(row)
			}
			return s, nil
		})
		if err != nil {
			return nil, err
		}
		merged := partials[0]
		for _, partial := range partials[1:] {
			merged.merge(partial)
		}
		states[0] = merged
		return states, nil
	}

	err := pool.Run(ctx, p.Len(), func(_ context.Context, c workers.Chunk) error {
		for g := c.Lo; g < c.Hi; g++ {
			s := k.newState()
			p.Each(g, s.add)
			states[g] = s
		}
		return nil
	})
	return states, err
}

func kernelFor(op types.AggregationType, in, out types.DataType, acc *arrowutil.Accessor, opts Options) (kernel, error) {
	switch op {
	case types.AggregationTypeSum:
		if out == types.Float64 {
			return sumFloatKernel(acc, opts.SumNullPolicy), nil
		}
		return sumIntKernel(acc, out, opts), nil
	case types.AggregationTypeMean:
		return meanKernel(acc), nil
	case types.AggregationTypeMin:
		return argBestKernel(acc, -1), nil
	case types.AggregationTypeMax:
		return argBestKernel(acc, 1), nil
	case types.AggregationTypeCount:
		return countKernel(acc, false), nil
	case types.AggregationTypeLen:
		return countKernel(acc, true), nil
	case types.AggregationTypeNUnique:
		return nUniqueKernel(acc), nil
	case types.AggregationTypeQuantile:
		if opts.Quantile < 0 || opts.Quantile > 1 {
			return kernel{}, errors.Computef(opts.Subject, "quantile must be between 0 and 1, got %g", opts.Quantile)
		}
		return quantileKernel(acc, opts.Quantile), nil
	case types.AggregationTypeMedian:
		return quantileKernel(acc, 0.5), nil
	case types.AggregationTypeStd:
		return momentsKernel(acc, true), nil
	case types.AggregationTypeVar:
		return momentsKernel(acc, false), nil
	}
	return kernel{}, fmt.Errorf("unsupported aggregation %s of %s", op, in)
}
