package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Limit keeps at most Length rows of Input, starting at row Offset.
type Limit struct {
	Input  Plan
	Offset int
	Length int
}

func (l *Limit) Type() PlanType     { return PlanTypeLimit }
func (l *Limit) Inputs() []Plan     { return []Plan{l.Input} }
func (l *Limit) SortedBy() []string { return l.Input.SortedBy() }

func (l *Limit) Schema() (types.Schema, error) {
	if l.Offset < 0 || l.Length < 0 {
		return types.Schema{}, errors.Computef("slice", "offset and length must not be negative, got %d and %d", l.Offset, l.Length)
	}
	return l.Input.Schema()
}
