package logical

import (
	"slices"

	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Aggregate groups the rows of Input by Keys and computes Aggs per group.
// The output has the key columns followed by one column per aggregation.
type Aggregate struct {
	Input Plan
	Keys  []Expr
	Aggs  []Expr

	// SortGroups orders the output by key instead of by first occurrence.
	SortGroups bool
	// DropNullKeys drops rows with a null in any key column.
	DropNullKeys bool
}

func (a *Aggregate) Type() PlanType { return PlanTypeAggregate }
func (a *Aggregate) Inputs() []Plan { return []Plan{a.Input} }

func (a *Aggregate) Schema() (types.Schema, error) {
	input, err := a.Input.Schema()
	if err != nil {
		return types.Schema{}, err
	}

	fields := make([]types.Field, 0, len(a.Keys)+len(a.Aggs))
	seen := make(map[string]struct{}, cap(fields))
	add := func(e Expr, t types.DataType) error {
		name := OutputName(e)
		if _, dup := seen[name]; dup {
			return errors.Schemaf(name, "duplicate output column")
		}
		seen[name] = struct{}{}
		fields = append(fields, types.Field{Name: name, Type: t})
		return nil
	}

	for _, k := range a.Keys {
		if !IsRowLocal(k) {
			return types.Schema{}, errors.Computef(k.String(), "group keys must be row-wise expressions")
		}
		t, err := TypeOf(k, input)
		if err != nil {
			return types.Schema{}, err
		}
		if err := add(k, t); err != nil {
			return types.Schema{}, err
		}
	}
	for _, agg := range a.Aggs {
		if err := checkAggregation(agg); err != nil {
			return types.Schema{}, err
		}
		t, err := TypeOf(agg, input)
		if err != nil {
			return types.Schema{}, err
		}
		if err := add(agg, t); err != nil {
			return types.Schema{}, err
		}
	}
	return types.NewSchema(fields...), nil
}

// checkAggregation validates that e yields one value per group: every
// column it references must be inside an aggregation.
func checkAggregation(e Expr) error {
	if ContainsWindow(e) {
		return errors.Computef(e.String(), "window expressions are not allowed in aggregations")
	}
	var bare string
	Walk(e, func(e Expr) bool {
		switch e := e.(type) {
		case *AggregateExpr:
			return false
		case *ColumnExpr:
			if bare == "" {
				bare = e.Name
			}
		}
		return true
	})
	if bare != "" {
		return errors.Computef(e.String(), "column %s must be aggregated", bare)
	}
	if !ContainsAggregate(e) {
		return errors.Computef(e.String(), "expression does not aggregate")
	}
	return nil
}

// KeyNames returns the names of the key columns if all keys are plain column
// references.
func (a *Aggregate) KeyNames() ([]string, bool) {
	names := make([]string, len(a.Keys))
	for i, k := range a.Keys {
		c, ok := k.(*ColumnExpr)
		if !ok {
			return nil, false
		}
		names[i] = c.Name
	}
	return names, true
}

// InputSortedByKeys reports whether the input is known to be sorted by the
// group keys, in which case groups are contiguous runs of rows.
func (a *Aggregate) InputSortedByKeys() bool {
	keys, ok := a.KeyNames()
	if !ok || len(keys) == 0 {
		return false
	}
	sorted := a.Input.SortedBy()
	if len(sorted) < len(keys) {
		return false
	}
	for _, k := range keys {
		if !slices.Contains(sorted[:len(keys)], k) {
			return false
		}
	}
	return true
}

func (a *Aggregate) SortedBy() []string {
	keys, ok := a.KeyNames()
	if !ok {
		return nil
	}
	if a.SortGroups {
		return keys
	}
	if a.InputSortedByKeys() {
		return slices.Clone(a.Input.SortedBy()[:len(keys)])
	}
	return nil
}
