package logical

import "github.com/JacekPliszka/polars/pkg/engine/types"

// mergeFilters combines directly nested filters into one. Conjuncts of the
// inner filter come first.
type mergeFilters struct{}

func (r *mergeFilters) apply(p Plan) Plan {
	return transformUp(p, func(p Plan) Plan {
		outer, ok := p.(*Filter)
		if !ok {
			return p
		}
		inner, ok := outer.Input.(*Filter)
		if !ok {
			return p
		}
		return &Filter{Input: inner.Input, Predicate: And(inner.Predicate, outer.Predicate)}
	})
}

// removeNoopNodes removes filters that keep every row and projections that
// output their input unchanged.
type removeNoopNodes struct{}

func (r *removeNoopNodes) apply(p Plan) Plan {
	return transformUp(p, func(p Plan) Plan {
		switch p := p.(type) {
		case *Filter:
			var kept []Expr
			for _, c := range SplitConjunction(p.Predicate) {
				if !isTrue(c) {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				return p.Input
			}
			if len(kept) < len(SplitConjunction(p.Predicate)) {
				return &Filter{Input: p.Input, Predicate: And(kept...)}
			}

		case *Projection:
			if isIdentityProjection(p) {
				return p.Input
			}
		}
		return p
	})
}

func isTrue(e Expr) bool {
	l, ok := e.(*LiteralExpr)
	return ok && l.Value.Type() == types.Bool && !l.Value.IsNull() && l.Value.Bool()
}

func isIdentityProjection(p *Projection) bool {
	switch p.Mode {
	case ProjectionDrop, ProjectionExpand:
		return len(p.Exprs) == 0
	}
	input, err := p.Input.Schema()
	if err != nil || len(p.Exprs) != input.Len() {
		return false
	}
	for i, e := range p.Exprs {
		c, ok := e.(*ColumnExpr)
		if !ok || c.Name != input.Fields[i].Name {
			return false
		}
	}
	return true
}

// slicePushdown moves row ranges into scans and combines nested ranges. A
// range moves below projections that compute every row independently.
type slicePushdown struct{}

func (r *slicePushdown) apply(p Plan) Plan {
	return transformUp(p, func(p Plan) Plan {
		limit, ok := p.(*Limit)
		if !ok {
			return p
		}
		outer := SliceRange{Offset: limit.Offset, Length: limit.Length}

		switch in := limit.Input.(type) {
		case *Scan:
			c := *in
			combined := outer
			if in.Slice != nil {
				combined = composeSlices(*in.Slice, outer)
			}
			c.Slice = &combined
			return &c

		case *Limit:
			combined := composeSlices(SliceRange{Offset: in.Offset, Length: in.Length}, outer)
			return r.apply(&Limit{Input: in.Input, Offset: combined.Offset, Length: combined.Length})

		case *Projection:
			if in.AllScalar() {
				return p
			}
			for _, e := range in.Exprs {
				if !IsRowLocal(e) {
					return p
				}
			}
			pushed := r.apply(&Limit{Input: in.Input, Offset: limit.Offset, Length: limit.Length})
			return WithInputs(in, []Plan{pushed})
		}
		return p
	})
}

// composeSlices returns the range equal to applying inner, then outer.
func composeSlices(inner, outer SliceRange) SliceRange {
	length := min(outer.Length, max(inner.Length-outer.Offset, 0))
	return SliceRange{Offset: inner.Offset + outer.Offset, Length: length}
}
