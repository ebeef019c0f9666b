package logical

import "github.com/JacekPliszka/polars/pkg/engine/types"

// Filter keeps the rows of Input for which Predicate is true. Rows with a
// null predicate are dropped.
type Filter struct {
	Input     Plan
	Predicate Expr
}

func (f *Filter) Type() PlanType     { return PlanTypeFilter }
func (f *Filter) Inputs() []Plan     { return []Plan{f.Input} }
func (f *Filter) SortedBy() []string { return f.Input.SortedBy() }

func (f *Filter) Schema() (types.Schema, error) {
	schema, err := f.Input.Schema()
	if err != nil {
		return types.Schema{}, err
	}
	if err := checkPredicate(f.Predicate, schema); err != nil {
		return types.Schema{}, err
	}
	return schema, nil
}
