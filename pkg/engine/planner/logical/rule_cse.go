package logical

import "fmt"

// cseColumnPrefix prefixes the names of columns holding common
// subexpressions.
const cseColumnPrefix = "__cse_"

// commonSubexpressions evaluates row-wise subexpressions that occur more
// than once in the expressions of one node only once. The shared values are
// computed by a projection below the node and referenced by name.
type commonSubexpressions struct{}

func (r *commonSubexpressions) apply(p Plan) Plan {
	return transformUp(p, func(p Plan) Plan {
		switch p := p.(type) {
		case *Projection:
			if p.Mode == ProjectionDrop {
				return p
			}
			input, shared, exprs := eliminateCommon(p.Input, p.Exprs)
			if shared == nil {
				return p
			}
			out := Plan(&Projection{Input: input, Exprs: exprs, Mode: p.Mode})
			if p.Mode == ProjectionExpand {
				out = dropColumns(out, shared)
			}
			return out

		case *Window:
			input, shared, exprs := eliminateCommon(p.Input, p.Exprs)
			if shared == nil {
				return p
			}
			return dropColumns(&Window{Input: input, Exprs: exprs}, shared)

		case *Aggregate:
			all := append(append([]Expr(nil), p.Keys...), p.Aggs...)
			input, shared, exprs := eliminateCommon(p.Input, all)
			if shared == nil {
				return p
			}
			c := *p
			c.Input = input
			c.Keys, c.Aggs = exprs[:len(p.Keys)], exprs[len(p.Keys):]
			return &c
		}
		return p
	})
}

// eliminateCommon extracts repeated subexpressions of exprs. It returns the
// new input computing them, the names of the added columns, and exprs
// rewritten to reference them. It returns nil names if nothing repeats.
func eliminateCommon(input Plan, exprs []Expr) (Plan, []string, []Expr) {
	schema, err := input.Schema()
	if err != nil {
		return input, nil, exprs
	}

	var (
		shared []Expr
		names  []string
		next   = 0
		out    = exprs
	)
	for {
		sub, ok := largestRepeated(out)
		if !ok {
			break
		}

		name := fmt.Sprintf("%s%d", cseColumnPrefix, next)
		for schema.Contains(name) {
			next++
			name = fmt.Sprintf("%s%d", cseColumnPrefix, next)
		}
		next++

		key := sub.String()
		rewritten := make([]Expr, len(out))
		for i, e := range out {
			rewritten[i] = Transform(e, func(e Expr) Expr {
				if e.String() == key {
					return Col(name)
				}
				return e
			})
		}
		out = rewritten
		shared = append(shared, Alias(sub, name))
		names = append(names, name)
	}
	if len(shared) == 0 {
		return input, nil, exprs
	}

	// Keep the original output names.
	for i := range out {
		if want := OutputName(exprs[i]); OutputName(out[i]) != want {
			out[i] = Alias(Unalias(out[i]), want)
		}
	}
	return &Projection{Input: input, Exprs: shared, Mode: ProjectionExpand}, names, out
}

// largestRepeated returns the largest row-wise subexpression occurring at
// least twice in exprs. Ties go to the first occurrence.
func largestRepeated(exprs []Expr) (Expr, bool) {
	type candidate struct {
		expr  Expr
		count int
		size  int
	}
	var (
		order []string
		seen  = make(map[string]*candidate)
	)
	for _, e := range exprs {
		Walk(e, func(sub Expr) bool {
			if !isCSECandidate(sub) {
				return true
			}
			key := sub.String()
			if c, ok := seen[key]; ok {
				c.count++
				return true
			}
			seen[key] = &candidate{expr: sub, count: 1, size: exprSize(sub)}
			order = append(order, key)
			return true
		})
	}

	var best *candidate
	for _, key := range order {
		c := seen[key]
		if c.count < 2 {
			continue
		}
		if best == nil || c.size > best.size {
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	return best.expr, true
}

func isCSECandidate(e Expr) bool {
	switch e.(type) {
	case *ColumnExpr, *LiteralExpr, *AliasExpr:
		return false
	}
	return IsRowLocal(e) && len(Columns(e)) > 0
}

func exprSize(e Expr) int {
	n := 0
	Walk(e, func(Expr) bool { n++; return true })
	return n
}

func dropColumns(p Plan, names []string) Plan {
	return &Projection{Input: p, Exprs: Cols(names...), Mode: ProjectionDrop}
}
