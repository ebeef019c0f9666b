package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Union concatenates the rows of Plans in order. All inputs must have the
// same schema.
type Union struct {
	Plans []Plan
}

func (u *Union) Type() PlanType     { return PlanTypeUnion }
func (u *Union) Inputs() []Plan     { return u.Plans }
func (u *Union) SortedBy() []string { return nil }

func (u *Union) Schema() (types.Schema, error) {
	if len(u.Plans) == 0 {
		return types.Schema{}, errors.Shapef("union", "no inputs")
	}
	first, err := u.Plans[0].Schema()
	if err != nil {
		return types.Schema{}, err
	}
	for i, p := range u.Plans[1:] {
		schema, err := p.Schema()
		if err != nil {
			return types.Schema{}, err
		}
		if !schema.Equal(first) {
			return types.Schema{}, errors.Schemaf("union", "input %d has schema %v, expected %v", i+1, schema.Fields, first.Fields)
		}
	}
	return first, nil
}
