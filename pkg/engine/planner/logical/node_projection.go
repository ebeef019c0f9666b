package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// ProjectionMode selects how a [Projection] combines its expressions with
// the input columns.
type ProjectionMode uint8

const (
	// ProjectionSelect outputs only the expressions.
	ProjectionSelect ProjectionMode = iota
	// ProjectionExpand outputs the input columns, with expressions replacing
	// columns of the same name and the rest appended.
	ProjectionExpand
	// ProjectionDrop outputs the input columns minus the referenced ones.
	ProjectionDrop
)

func (m ProjectionMode) String() string {
	switch m {
	case ProjectionSelect:
		return "Select"
	case ProjectionExpand:
		return "WithColumns"
	case ProjectionDrop:
		return "Drop"
	}
	return "invalid"
}

// Projection computes, adds or drops columns.
//
// In select mode, scalar expressions such as aggregates and literals produce
// a single value. If every expression is scalar the output has one row,
// otherwise single values are broadcast to the input length.
type Projection struct {
	Input Plan
	Exprs []Expr
	Mode  ProjectionMode
}

func (p *Projection) Type() PlanType { return PlanTypeProjection }
func (p *Projection) Inputs() []Plan { return []Plan{p.Input} }

func (p *Projection) Schema() (types.Schema, error) {
	input, err := p.Input.Schema()
	if err != nil {
		return types.Schema{}, err
	}
	switch p.Mode {
	case ProjectionSelect:
		return selectSchema(p.Exprs, input)
	case ProjectionExpand:
		return expandSchema(p.Exprs, input)
	case ProjectionDrop:
		return dropSchema(p.Exprs, input)
	}
	return types.Schema{}, errors.Schemaf("", "invalid projection mode %d", p.Mode)
}

func (p *Projection) SortedBy() []string {
	return truncateSorted(p.Input.SortedBy(), func(name string) bool {
		switch p.Mode {
		case ProjectionSelect:
			return passesThrough(p.Exprs, name)
		case ProjectionExpand:
			return !overwrites(p.Exprs, name)
		default:
			for _, e := range p.Exprs {
				if c, ok := e.(*ColumnExpr); ok && c.Name == name {
					return false
				}
			}
			return true
		}
	})
}

// AllScalar reports whether every expression of a select projection
// produces a single value, so that the output has exactly one row.
func (p *Projection) AllScalar() bool {
	if p.Mode != ProjectionSelect || len(p.Exprs) == 0 {
		return false
	}
	for _, e := range p.Exprs {
		if !IsScalar(e) {
			return false
		}
	}
	return true
}

// passesThrough reports whether one of exprs outputs the input column name
// unchanged.
func passesThrough(exprs []Expr, name string) bool {
	for _, e := range exprs {
		if OutputName(e) != name {
			continue
		}
		c, ok := Unalias(e).(*ColumnExpr)
		return ok && c.Name == name
	}
	return false
}

// overwrites reports whether one of exprs replaces the input column name
// with a different value.
func overwrites(exprs []Expr, name string) bool {
	for _, e := range exprs {
		if OutputName(e) != name {
			continue
		}
		c, ok := Unalias(e).(*ColumnExpr)
		if !ok || c.Name != name {
			return true
		}
	}
	return false
}

func selectSchema(exprs []Expr, input types.Schema) (types.Schema, error) {
	fields := make([]types.Field, 0, len(exprs))
	seen := make(map[string]struct{}, len(exprs))
	for _, e := range exprs {
		t, err := TypeOf(e, input)
		if err != nil {
			return types.Schema{}, err
		}
		name := OutputName(e)
		if _, dup := seen[name]; dup {
			return types.Schema{}, errors.Schemaf(name, "duplicate output column")
		}
		seen[name] = struct{}{}
		fields = append(fields, types.Field{Name: name, Type: t})
	}
	return types.NewSchema(fields...), nil
}

func expandSchema(exprs []Expr, input types.Schema) (types.Schema, error) {
	fields := append([]types.Field(nil), input.Fields...)
	seen := make(map[string]struct{}, len(exprs))
	for _, e := range exprs {
		t, err := TypeOf(e, input)
		if err != nil {
			return types.Schema{}, err
		}
		name := OutputName(e)
		if _, dup := seen[name]; dup {
			return types.Schema{}, errors.Schemaf(name, "duplicate output column")
		}
		seen[name] = struct{}{}

		if idx := input.Index(name); idx >= 0 {
			fields[idx].Type = t
			continue
		}
		fields = append(fields, types.Field{Name: name, Type: t})
	}
	return types.NewSchema(fields...), nil
}

func dropSchema(exprs []Expr, input types.Schema) (types.Schema, error) {
	drop := make(map[string]struct{}, len(exprs))
	for _, e := range exprs {
		c, ok := e.(*ColumnExpr)
		if !ok {
			return types.Schema{}, errors.Schemaf(e.String(), "only columns can be dropped")
		}
		if !input.Contains(c.Name) {
			return types.Schema{}, errors.Schemaf(c.Name, "column not found")
		}
		drop[c.Name] = struct{}{}
	}

	fields := make([]types.Field, 0, input.Len())
	for _, f := range input.Fields {
		if _, ok := drop[f.Name]; !ok {
			fields = append(fields, f)
		}
	}
	return types.NewSchema(fields...), nil
}
