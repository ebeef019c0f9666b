package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Distinct removes duplicate rows of Input, keeping the first occurrence.
// Rows are compared on Subset, or on all columns if Subset is empty. Nulls
// compare equal to each other.
type Distinct struct {
	Input  Plan
	Subset []string
}

func (d *Distinct) Type() PlanType     { return PlanTypeDistinct }
func (d *Distinct) Inputs() []Plan     { return []Plan{d.Input} }
func (d *Distinct) SortedBy() []string { return d.Input.SortedBy() }

func (d *Distinct) Schema() (types.Schema, error) {
	schema, err := d.Input.Schema()
	if err != nil {
		return types.Schema{}, err
	}
	for _, name := range d.Subset {
		if !schema.Contains(name) {
			return types.Schema{}, errors.Schemaf(name, "column not found")
		}
	}
	return schema, nil
}
