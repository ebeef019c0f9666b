package logical

import "github.com/JacekPliszka/polars/pkg/engine/types"

// Window adds or replaces columns computed by expressions that contain
// window functions. It behaves like a [Projection] in expand mode, but
// predicates are never moved below it: a window sees every input row.
type Window struct {
	Input Plan
	Exprs []Expr
}

func (w *Window) Type() PlanType { return PlanTypeWindow }
func (w *Window) Inputs() []Plan { return []Plan{w.Input} }

func (w *Window) Schema() (types.Schema, error) {
	input, err := w.Input.Schema()
	if err != nil {
		return types.Schema{}, err
	}
	return expandSchema(w.Exprs, input)
}

func (w *Window) SortedBy() []string {
	return truncateSorted(w.Input.SortedBy(), func(name string) bool {
		return !overwrites(w.Exprs, name)
	})
}
