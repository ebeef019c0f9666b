package logical

import (
	"slices"

	"github.com/JacekPliszka/polars/pkg/engine/internal/join"
)

// columnSet is a set of required column names. A nil set requires every
// column.
type columnSet map[string]struct{}

func newColumnSet(names ...string) columnSet {
	s := make(columnSet, len(names))
	s.add(names...)
	return s
}

func (s columnSet) add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s columnSet) has(name string) bool {
	if s == nil {
		return true
	}
	_, ok := s[name]
	return ok
}

// with returns a copy of s extended by names. It returns nil if s is nil.
func (s columnSet) with(names ...string) columnSet {
	if s == nil {
		return nil
	}
	out := make(columnSet, len(s)+len(names))
	for n := range s {
		out[n] = struct{}{}
	}
	out.add(names...)
	return out
}

// projectionPushdown narrows scans and intermediate nodes to the columns
// that some node above them references.
type projectionPushdown struct{}

func (r *projectionPushdown) apply(p Plan) Plan { return pushProjections(p, nil) }

// pushProjections returns p rewritten to produce at least the columns in
// required. The result may contain more columns than required, but it
// contains every required column under the same name and type.
func pushProjections(p Plan, required columnSet) Plan {
	switch p := p.(type) {
	case *Scan:
		return pruneScan(p, required)

	case *Filter:
		return WithInputs(p, []Plan{pushProjections(p.Input, required.with(Columns(p.Predicate)...))})

	case *Sort:
		cols := make([]string, 0, len(p.Keys))
		for _, k := range p.Keys {
			cols = append(cols, Columns(k.Expr)...)
		}
		return WithInputs(p, []Plan{pushProjections(p.Input, required.with(cols...))})

	case *Limit:
		return WithInputs(p, []Plan{pushProjections(p.Input, required)})

	case *Distinct:
		if len(p.Subset) == 0 {
			return WithInputs(p, []Plan{pushProjections(p.Input, nil)})
		}
		return WithInputs(p, []Plan{pushProjections(p.Input, required.with(p.Subset...))})

	case *Projection:
		return pruneProjection(p, required)

	case *Window:
		exprs := pruneExprs(p.Exprs, required)
		if len(exprs) == 0 {
			return pushProjections(p.Input, required)
		}
		input := pushProjections(p.Input, expandRequirements(exprs, required))
		return &Window{Input: input, Exprs: exprs}

	case *Aggregate:
		aggs := pruneExprs(p.Aggs, required)
		if len(aggs) == 0 && len(p.Aggs) > 0 {
			aggs = p.Aggs[:1]
		}
		input := pushProjections(p.Input, newColumnSet(Columns(append(slices.Clone(p.Keys), aggs...)...)...))
		c := *p
		c.Input, c.Aggs = input, aggs
		return &c

	case *Join:
		return pruneJoin(p, required)

	case *Union:
		return pruneUnion(p, required)
	}
	return p
}

func pruneScan(s *Scan, required columnSet) Plan {
	if required == nil {
		return s
	}
	schema, err := s.Schema()
	if err != nil {
		return s
	}

	var cols []string
	for _, f := range schema.Fields {
		if required.has(f.Name) {
			cols = append(cols, f.Name)
		}
	}
	if len(cols) == 0 && schema.Len() > 0 {
		// Keep one column so the number of rows stays known.
		cols = []string{schema.Fields[0].Name}
	}
	if len(cols) == schema.Len() {
		return s
	}
	c := *s
	c.Projection = cols
	return &c
}

// pruneExprs returns the exprs whose output is required.
func pruneExprs(exprs []Expr, required columnSet) []Expr {
	if required == nil {
		return exprs
	}
	var out []Expr
	for _, e := range exprs {
		if required.has(OutputName(e)) {
			out = append(out, e)
		}
	}
	return out
}

// expandRequirements returns the input columns needed by an expanding node
// that outputs the required columns using exprs.
func expandRequirements(exprs []Expr, required columnSet) columnSet {
	if required == nil {
		return nil
	}
	produced := make(map[string]struct{}, len(exprs))
	for _, e := range exprs {
		produced[OutputName(e)] = struct{}{}
	}
	out := newColumnSet(Columns(exprs...)...)
	for name := range required {
		if _, ok := produced[name]; !ok {
			out.add(name)
		}
	}
	return out
}

func pruneProjection(p *Projection, required columnSet) Plan {
	switch p.Mode {
	case ProjectionSelect:
		exprs := pruneExprs(p.Exprs, required)
		if len(exprs) == 0 && len(p.Exprs) > 0 {
			exprs = p.Exprs[:1]
		}
		// Dropping every row-valued expression would collapse the output to
		// a single row.
		if len(p.Exprs) > 0 && !p.AllScalar() && !slices.ContainsFunc(exprs, func(e Expr) bool { return !IsScalar(e) }) {
			i := slices.IndexFunc(p.Exprs, func(e Expr) bool { return !IsScalar(e) })
			exprs = append(exprs, p.Exprs[i])
			exprs = orderLike(exprs, p.Exprs)
		}
		input := pushProjections(p.Input, newColumnSet(Columns(exprs...)...))
		return &Projection{Input: input, Exprs: exprs, Mode: ProjectionSelect}

	case ProjectionExpand:
		exprs := pruneExprs(p.Exprs, required)
		if len(exprs) == 0 {
			return pushProjections(p.Input, required)
		}
		input := pushProjections(p.Input, expandRequirements(exprs, required))
		return &Projection{Input: input, Exprs: exprs, Mode: ProjectionExpand}

	case ProjectionDrop:
		input := pushProjections(p.Input, required)
		schema, err := input.Schema()
		if err != nil {
			return WithInputs(p, []Plan{input})
		}
		var exprs []Expr
		for _, e := range p.Exprs {
			if c, ok := e.(*ColumnExpr); ok && schema.Contains(c.Name) {
				exprs = append(exprs, e)
			}
		}
		if len(exprs) == 0 {
			return input
		}
		return &Projection{Input: input, Exprs: exprs, Mode: ProjectionDrop}
	}
	return p
}

// orderLike sorts subset into the order of the same expressions in all.
func orderLike(subset, all []Expr) []Expr {
	out := make([]Expr, 0, len(subset))
	for _, e := range all {
		if slices.Contains(subset, e) {
			out = append(out, e)
		}
	}
	return out
}

func pruneJoin(j *Join, required columnSet) Plan {
	cols, ls, rs, err := j.Layout()
	if err != nil {
		return j
	}

	var left, right columnSet
	if required != nil {
		left, right = newColumnSet(), newColumnSet()
		for _, c := range cols {
			if !required.has(c.Name) {
				continue
			}
			if c.Side == join.SideLeft {
				left.add(ls.Fields[c.Index].Name)
				if c.CoalesceIndex >= 0 {
					right.add(rs.Fields[c.CoalesceIndex].Name)
				}
				continue
			}
			name := rs.Fields[c.Index].Name
			right.add(name)
			// Keep the colliding left column so the suffix still applies.
			if ls.Contains(name) {
				left.add(name)
			}
		}
		left.add(Columns(j.LeftOn...)...)
		left.add(j.AsOf.LeftBy...)
		right.add(Columns(j.RightOn...)...)
		right.add(j.AsOf.RightBy...)
	}
	if !j.JoinOptions.Type.KeepsRightColumns() {
		right = newColumnSet(append(Columns(j.RightOn...), j.AsOf.RightBy...)...)
	}

	return WithInputs(j, []Plan{pushProjections(j.Left, left), pushProjections(j.Right, right)})
}

func pruneUnion(u *Union, required columnSet) Plan {
	schema, err := u.Schema()
	if err != nil {
		return u
	}
	var names []string
	for _, f := range schema.Fields {
		if required.has(f.Name) {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 && schema.Len() > 0 {
		names = []string{schema.Fields[0].Name}
	}

	plans := make([]Plan, len(u.Plans))
	for i, in := range u.Plans {
		plans[i] = selectExactly(pushProjections(in, newColumnSet(names...)), names)
	}
	return &Union{Plans: plans}
}

// selectExactly narrows p to the columns names, in that order, unless it
// already has exactly these columns.
func selectExactly(p Plan, names []string) Plan {
	schema, err := p.Schema()
	if err == nil && slices.Equal(schema.Names(), names) {
		return p
	}
	return &Projection{Input: p, Exprs: Cols(names...), Mode: ProjectionSelect}
}
