package logical

import (
	"slices"

	"github.com/JacekPliszka/polars/pkg/engine/internal/join"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// predicatePushdown moves filter conjuncts as close to the scans as
// possible. Conjuncts are never moved below a Window or Limit node, since
// both depend on the full set of input rows.
type predicatePushdown struct{}

func (r *predicatePushdown) apply(p Plan) Plan { return pushPredicates(p, nil) }

// pushPredicates pushes preds, which are valid against the output of p,
// into p. Conjuncts that appear earlier in preds were applied first in the
// original plan and keep that order.
func pushPredicates(p Plan, preds []Expr) Plan {
	switch p := p.(type) {
	case *Filter:
		all := append(SplitConjunction(p.Predicate), preds...)
		// A conjunct that looks at other rows, and every conjunct applied
		// after it, must see exactly the rows that reach this filter.
		i := slices.IndexFunc(all, func(e Expr) bool { return !IsRowLocal(e) })
		if i < 0 {
			return pushPredicates(p.Input, all)
		}
		return withFilter(pushPredicates(p.Input, all[:i]), all[i:])

	case *Scan:
		if len(preds) == 0 {
			return p
		}
		if p.Slice != nil {
			return withFilter(p, preds)
		}
		c := *p
		if p.Predicate != nil {
			preds = append(SplitConjunction(p.Predicate), preds...)
		}
		c.Predicate = And(preds...)
		return &c

	case *Projection:
		pushed, kept := splitProjectionPredicates(p, preds)
		return withFilter(WithInputs(p, []Plan{pushPredicates(p.Input, pushed)}), kept)

	case *Sort, *Union:
		return mapInputs(p, func(in Plan) Plan { return pushPredicates(in, slices.Clone(preds)) })

	case *Aggregate:
		pushed, kept := splitAggregatePredicates(p, preds)
		return withFilter(WithInputs(p, []Plan{pushPredicates(p.Input, pushed)}), kept)

	case *Join:
		left, right, kept := splitJoinPredicates(p, preds)
		return withFilter(WithInputs(p, []Plan{pushPredicates(p.Left, left), pushPredicates(p.Right, right)}), kept)

	case *Distinct:
		var pushed, kept []Expr
		for _, pred := range preds {
			if len(p.Subset) == 0 || subsetOf(Columns(pred), p.Subset) {
				pushed = append(pushed, pred)
			} else {
				kept = append(kept, pred)
			}
		}
		return withFilter(WithInputs(p, []Plan{pushPredicates(p.Input, pushed)}), kept)
	}

	// Window, Limit and anything else: stop here.
	return withFilter(mapInputs(p, func(in Plan) Plan { return pushPredicates(in, nil) }), preds)
}

func withFilter(p Plan, preds []Expr) Plan {
	if len(preds) == 0 {
		return p
	}
	return &Filter{Input: p, Predicate: And(preds...)}
}

func splitProjectionPredicates(p *Projection, preds []Expr) (pushed, kept []Expr) {
	if p.Mode == ProjectionDrop {
		return preds, nil
	}
	for _, e := range p.Exprs {
		if !IsRowLocal(e) {
			return nil, preds
		}
	}
	if p.AllScalar() {
		return nil, preds
	}
	input, err := p.Input.Schema()
	if err != nil {
		return nil, preds
	}

	// renames maps output columns that are plain input columns to the input
	// column name.
	renames := make(map[string]string)
	if p.Mode == ProjectionExpand {
		for _, f := range input.Fields {
			if !overwrites(p.Exprs, f.Name) {
				renames[f.Name] = f.Name
			}
		}
	}
	for _, e := range p.Exprs {
		if c, ok := Unalias(e).(*ColumnExpr); ok {
			renames[OutputName(e)] = c.Name
		} else {
			delete(renames, OutputName(e))
		}
	}

	for _, pred := range preds {
		if rewritten, ok := renameColumns(pred, renames); ok {
			pushed = append(pushed, rewritten)
		} else {
			kept = append(kept, pred)
		}
	}
	return pushed, kept
}

func splitAggregatePredicates(p *Aggregate, preds []Expr) (pushed, kept []Expr) {
	renames := make(map[string]string)
	for _, k := range p.Keys {
		if c, ok := Unalias(k).(*ColumnExpr); ok {
			renames[OutputName(k)] = c.Name
		}
	}
	for _, pred := range preds {
		// Predicates without columns would change the number of groups of a
		// global aggregation.
		if len(p.Keys) == 0 || len(Columns(pred)) == 0 {
			kept = append(kept, pred)
			continue
		}
		if rewritten, ok := renameColumns(pred, renames); ok {
			pushed = append(pushed, rewritten)
		} else {
			kept = append(kept, pred)
		}
	}
	return pushed, kept
}

func splitJoinPredicates(p *Join, preds []Expr) (left, right, kept []Expr) {
	if len(preds) == 0 {
		return nil, nil, nil
	}
	cols, ls, rs, err := p.Layout()
	if err != nil {
		return nil, nil, preds
	}

	var (
		toLeft  = make(map[string]string)
		toRight = make(map[string]string)
	)
	for _, c := range cols {
		switch {
		case c.CoalesceIndex >= 0:
		case c.Side == join.SideLeft:
			toLeft[c.Name] = ls.Fields[c.Index].Name
		default:
			toRight[c.Name] = rs.Fields[c.Index].Name
		}
	}

	// As-of joins check the order of the whole left key column, so a filter
	// must not remove the rows that break it.
	leftOK := p.JoinOptions.Type != types.JoinTypeOuter && p.JoinOptions.Type != types.JoinTypeAsOf
	rightOK := p.JoinOptions.Type == types.JoinTypeInner || p.JoinOptions.Type == types.JoinTypeCross

	for _, pred := range preds {
		if len(Columns(pred)) == 0 {
			kept = append(kept, pred)
			continue
		}
		if rewritten, ok := renameColumns(pred, toLeft); ok && leftOK {
			left = append(left, rewritten)
			continue
		}
		if rewritten, ok := renameColumns(pred, toRight); ok && rightOK {
			right = append(right, rewritten)
			continue
		}
		kept = append(kept, pred)
	}
	return left, right, kept
}

// renameColumns rewrites the column references of e through renames. It
// reports false if e references a column missing from renames.
func renameColumns(e Expr, renames map[string]string) (Expr, bool) {
	for _, name := range Columns(e) {
		if _, ok := renames[name]; !ok {
			return nil, false
		}
	}
	return Transform(e, func(e Expr) Expr {
		if c, ok := e.(*ColumnExpr); ok && renames[c.Name] != c.Name {
			return Col(renames[c.Name])
		}
		return e
	}), true
}

func subsetOf(names, set []string) bool {
	for _, n := range names {
		if !slices.Contains(set, n) {
			return false
		}
	}
	return true
}
