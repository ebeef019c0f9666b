package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/internal/aggregate"
	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/groups"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// evaluator computes expressions over materialized records.
//
// Expressions are evaluated in one of two contexts. In the row context every
// expression yields one value per input row and aggregates are broadcast. In
// the group context, used by aggregations and windows, aggregates yield one
// value per group and bare column references are rejected.
type evaluator struct {
	pool     *workers.Pool
	mem      memory.Allocator
	cache    *types.StringCache
	sumNulls types.SumNullPolicy
}

type scope struct {
	rec    arrow.Record
	schema types.Schema
	groups groups.Proxy // nil in the row context
}

func (s *scope) rows() int {
	if s.groups != nil {
		return s.groups.Len()
	}
	return int(s.rec.NumRows())
}

func schemaOf(rec arrow.Record) (types.Schema, error) {
	schema, err := types.SchemaFromArrow(rec.Schema())
	if err != nil {
		return types.Schema{}, errors.DataTypef("", "%s", err)
	}
	return schema, nil
}

// eval evaluates e in the row context of rec. The result has one value per
// row and the type inferred for e. Row-wise expressions over records larger
// than one chunk are evaluated chunk by chunk on the worker pool.
func (ev *evaluator) eval(ctx context.Context, e logical.Expr, rec arrow.Record) (arrow.Array, error) {
	schema, err := schemaOf(rec)
	if err != nil {
		return nil, err
	}
	want, err := logical.TypeOf(e, schema)
	if err != nil {
		return nil, err
	}

	n := int(rec.NumRows())
	if !logical.IsRowLocal(e) || n <= ev.pool.ChunkSize() {
		arr, err := ev.evalExpr(ctx, e, &scope{rec: rec, schema: schema})
		if err != nil {
			return nil, err
		}
		return coerce(ev.mem, arr, want, ev.cache, e.String())
	}

	parts, err := workers.Map(ctx, ev.pool, n, func(ctx context.Context, c workers.Chunk) (arrow.Array, error) {
		sub := rec.NewSlice(int64(c.Lo), int64(c.Hi))
		defer sub.Release()
		arr, err := ev.evalExpr(ctx, e, &scope{rec: sub, schema: schema})
		if err != nil {
			return nil, err
		}
		return coerce(ev.mem, arr, want, ev.cache, e.String())
	})
	if err != nil {
		return nil, err
	}
	defer releaseArrays(parts)
	return arrowutil.Concat(ev.mem, parts)
}

// evalGrouped evaluates e in the group context of p and returns one value
// per group.
func (ev *evaluator) evalGrouped(ctx context.Context, e logical.Expr, rec arrow.Record, p groups.Proxy) (arrow.Array, error) {
	schema, err := schemaOf(rec)
	if err != nil {
		return nil, err
	}
	want, err := logical.TypeOf(e, schema)
	if err != nil {
		return nil, err
	}
	arr, err := ev.evalExpr(ctx, e, &scope{rec: rec, schema: schema, groups: p})
	if err != nil {
		return nil, err
	}
	return coerce(ev.mem, arr, want, ev.cache, e.String())
}

func (ev *evaluator) evalExpr(ctx context.Context, e logical.Expr, s *scope) (arrow.Array, error) {
	switch e := e.(type) {
	case *logical.ColumnExpr:
		if s.groups != nil {
			return nil, errors.Computef(e.String(), "column must be aggregated")
		}
		idx := s.rec.Schema().FieldIndices(e.Name)
		if len(idx) == 0 {
			return nil, errors.Schemaf(e.Name, "column not found")
		}
		col := s.rec.Column(idx[0])
		col.Retain()
		return col, nil

	case *logical.LiteralExpr:
		arr, err := arrowutil.Repeat(ev.mem, e.Value, s.rows())
		if err != nil {
			return nil, errors.DataTypef(e.String(), "%s", err)
		}
		return arr, nil

	case *logical.AliasExpr:
		return ev.evalExpr(ctx, e.Value, s)

	case *logical.BinaryExpr:
		l, err := ev.evalExpr(ctx, e.Left, s)
		if err != nil {
			return nil, err
		}
		defer l.Release()
		r, err := ev.evalExpr(ctx, e.Right, s)
		if err != nil {
			return nil, err
		}
		defer r.Release()
		return binary(ev.mem, e.Op, l, r, e.String())

	case *logical.UnaryExpr:
		v, err := ev.evalExpr(ctx, e.Value, s)
		if err != nil {
			return nil, err
		}
		defer v.Release()
		return unary(ev.mem, e.Op, v, e.String())

	case *logical.CastExpr:
		v, err := ev.evalExpr(ctx, e.Value, s)
		if err != nil {
			return nil, err
		}
		defer v.Release()
		return castArray(ev.mem, v, e.To, e.Strict, ev.cache, e.String())

	case *logical.AggregateExpr:
		return ev.evalAggregate(ctx, e, s)

	case *logical.WindowExpr:
		if s.groups != nil {
			return nil, errors.Computef(e.String(), "window expressions cannot be aggregated")
		}
		return ev.evalWindow(ctx, e, s)

	case *logical.ConditionalExpr:
		return ev.evalConditional(ctx, e, s)

	case *logical.FunctionExpr:
		return ev.evalFunction(ctx, e, s)
	}
	return nil, errors.Computef(e.String(), "unsupported expression %T", e)
}

// evalAggregate reduces the aggregated value per group. In the row context
// the whole record is one group and the result is broadcast to every row.
func (ev *evaluator) evalAggregate(ctx context.Context, e *logical.AggregateExpr, s *scope) (arrow.Array, error) {
	p := s.groups
	if p == nil {
		p = groups.Single(int(s.rec.NumRows()))
	}

	values, vp, err := ev.aggregationInput(ctx, e.Value, s.rec, p)
	if err != nil {
		return nil, err
	}
	defer values.Release()

	out, err := aggregate.Grouped(ctx, ev.pool, ev.mem, e.Op, values, vp, aggregate.Options{
		Quantile:      e.Quantile,
		SumNullPolicy: ev.sumNulls,
		Subject:       e.String(),
	})
	if err != nil || s.groups != nil {
		return out, err
	}
	defer out.Release()
	return arrowutil.Take(ev.mem, out, make([]int, s.rec.NumRows())), nil
}

// aggregationInput evaluates the input of an aggregation. Sequence
// functions restart in every group, so their input is computed group by
// group and laid out contiguously.
func (ev *evaluator) aggregationInput(ctx context.Context, e logical.Expr, rec arrow.Record, p groups.Proxy) (arrow.Array, groups.Proxy, error) {
	if !logical.ContainsSequence(e) || p.Len() == 0 {
		arr, err := ev.eval(ctx, e, rec)
		return arr, p, err
	}

	var (
		parts  = make([]arrow.Array, 0, p.Len())
		slices = make([][2]int, p.Len())
		offset = 0
	)
	defer func() { releaseArrays(parts) }()
	for g := 0; g < p.Len(); g++ {
		if err := ev.pool.Check(ctx); err != nil {
			return nil, nil, err
		}
		part, err := ev.evalRows(ctx, e, rec, p.Rows(g))
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, part)
		slices[g] = [2]int{offset, part.Len()}
		offset += part.Len()
	}
	arr, err := arrowutil.Concat(ev.mem, parts)
	if err != nil {
		return nil, nil, err
	}
	return arr, &groups.Slice{Groups: slices}, nil
}

// evalRows evaluates e in the row context of the given rows of rec.
func (ev *evaluator) evalRows(ctx context.Context, e logical.Expr, rec arrow.Record, rows []int) (arrow.Array, error) {
	sub := arrowutil.TakeRecord(ev.mem, rec, rows)
	defer sub.Release()
	return ev.eval(ctx, e, sub)
}

// evalWindow evaluates e.Value separately for every partition. Scalar
// results are broadcast to the rows of their partition; other results must
// have one value per row and are scattered back to the original row order.
func (ev *evaluator) evalWindow(ctx context.Context, e *logical.WindowExpr, s *scope) (arrow.Array, error) {
	n := int(s.rec.NumRows())
	keys := make([]arrow.Array, 0, len(e.PartitionBy))
	defer func() { releaseArrays(keys) }()
	for _, by := range e.PartitionBy {
		key, err := ev.eval(ctx, by, s.rec)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	p, err := groups.Build(ctx, ev.pool, keys, n, groups.Options{})
	if err != nil {
		return nil, err
	}

	if logical.IsScalar(e.Value) {
		values, err := ev.evalGrouped(ctx, e.Value, s.rec, p)
		if err != nil {
			return nil, err
		}
		defer values.Release()
		return arrowutil.Take(ev.mem, values, groups.GroupIDs(p, n)), nil
	}

	if n == 0 {
		return ev.eval(ctx, e.Value, s.rec)
	}
	var (
		parts = make([]arrow.Array, 0, p.Len())
		order = make([]int, 0, n)
	)
	defer func() { releaseArrays(parts) }()
	for g := 0; g < p.Len(); g++ {
		rows := p.Rows(g)
		part, err := ev.evalRows(ctx, e.Value, s.rec, rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		if part.Len() != len(rows) {
			return nil, errors.Shapef(e.String(), "expression returned %d rows for a partition of %d rows", part.Len(), len(rows))
		}
		order = append(order, rows...)
	}

	values, err := arrowutil.Concat(ev.mem, parts)
	if err != nil {
		return nil, err
	}
	defer values.Release()
	positions := make([]int, n)
	for i, row := range order {
		positions[row] = i
	}
	return arrowutil.Take(ev.mem, values, positions), nil
}

func (ev *evaluator) evalConditional(ctx context.Context, e *logical.ConditionalExpr, s *scope) (arrow.Array, error) {
	want, err := logical.TypeOf(e, s.schema)
	if err != nil {
		return nil, err
	}

	var (
		n        = s.rows()
		arrs     []arrow.Array
		conds    = make([]arrowutil.Accessor, len(e.Branches))
		thens    = make([]arrowutil.Accessor, len(e.Branches))
		evalCast = func(e logical.Expr) (arrowutil.Accessor, error) {
			arr, err := ev.evalExpr(ctx, e, s)
			if err != nil {
				return arrowutil.Accessor{}, err
			}
			if arr, err = coerce(ev.mem, arr, want, ev.cache, e.String()); err != nil {
				return arrowutil.Accessor{}, err
			}
			arrs = append(arrs, arr)
			return arrowutil.NewAccessor(arr), nil
		}
	)
	defer func() { releaseArrays(arrs) }()

	for i, b := range e.Branches {
		cond, err := ev.evalExpr(ctx, b.When, s)
		if err != nil {
			return nil, err
		}
		arrs = append(arrs, cond)
		conds[i] = arrowutil.NewAccessor(cond)
		if thens[i], err = evalCast(b.Then); err != nil {
			return nil, err
		}
	}
	otherwise := e.Otherwise
	if otherwise == nil {
		otherwise = logical.LitValue(types.TypedNull(want))
	}
	other, err := evalCast(otherwise)
	if err != nil {
		return nil, err
	}

	values := make([]any, n)
	for i := range values {
		pick := &other
		for j := range conds {
			if !conds[j].IsNull(i) && conds[j].Bool(i) {
				pick = &thens[j]
				break
			}
		}
		values[i] = pick.Value(i)
	}
	return arrowutil.FromValues(ev.mem, want, values, ev.cache)
}

func (ev *evaluator) evalFunction(ctx context.Context, e *logical.FunctionExpr, s *scope) (arrow.Array, error) {
	args := make([]arrow.Array, 0, len(e.Args))
	defer func() { releaseArrays(args) }()
	for _, arg := range e.Args {
		arr, err := ev.evalExpr(ctx, arg, s)
		if err != nil {
			return nil, err
		}
		args = append(args, arr)
	}
	if len(args) == 0 {
		return nil, errors.Computef(e.String(), "%s needs at least one argument", e.Func)
	}

	subject := e.String()
	switch e.Func {
	case types.FunctionAbs:
		return abs(ev.mem, args[0], subject)
	case types.FunctionRound:
		return round(ev.mem, args[0], e.Options.Decimals)
	case types.FunctionFillNull, types.FunctionCoalesce:
		want, err := logical.TypeOf(e, s.schema)
		if err != nil {
			return nil, err
		}
		cast := make([]arrow.Array, 0, len(args))
		defer func() { releaseArrays(cast) }()
		for _, arg := range args {
			arr, err := castArray(ev.mem, arg, want, true, ev.cache, subject)
			if err != nil {
				return nil, err
			}
			cast = append(cast, arr)
		}
		return coalesce(ev.mem, want, cast, ev.cache)
	case types.FunctionCumSum:
		return aggregate.CumSum(ev.mem, args[0], subject)
	case types.FunctionShift:
		return aggregate.Shift(ev.mem, args[0], e.Options.Periods), nil
	case types.FunctionContains:
		return contains(ev.mem, args[0], e.Options.Pattern, subject)
	}
	if e.Func.IsRolling() {
		return aggregate.Rolling(ev.mem, e.Func, args[0], e.Options.Window, e.Options.MinPeriods, subject)
	}
	return nil, errors.Computef(subject, "unsupported function %s", e.Func)
}

func releaseArrays(arrs []arrow.Array) {
	for _, arr := range arrs {
		if arr != nil {
			arr.Release()
		}
	}
}
