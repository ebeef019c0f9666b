// Package logical describes queries as immutable trees of plan nodes over
// expressions. Building, inspecting and optimizing a plan never reads data.
package logical

import (
	"fmt"
	"slices"

	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// PlanType is the kind of a [Plan] node.
type PlanType uint8

const (
	PlanTypeInvalid PlanType = iota

	PlanTypeScan
	PlanTypeFilter
	PlanTypeProjection
	PlanTypeAggregate
	PlanTypeJoin
	PlanTypeSort
	PlanTypeWindow
	PlanTypeUnion
	PlanTypeLimit
	PlanTypeDistinct
)

var planTypeStrings = map[PlanType]string{
	PlanTypeInvalid:    "invalid",
	PlanTypeScan:       "Scan",
	PlanTypeFilter:     "Filter",
	PlanTypeProjection: "Projection",
	PlanTypeAggregate:  "Aggregate",
	PlanTypeJoin:       "Join",
	PlanTypeSort:       "Sort",
	PlanTypeWindow:     "Window",
	PlanTypeUnion:      "Union",
	PlanTypeLimit:      "Limit",
	PlanTypeDistinct:   "Distinct",
}

func (t PlanType) String() string {
	if s, ok := planTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("PlanType(%d)", t)
}

// Plan is a node of a logical plan. Nodes own their inputs and are never
// modified after construction; rewrites create new nodes.
type Plan interface {
	Type() PlanType

	// Schema returns the output schema of the node. It validates the node
	// and its inputs and fails with a SchemaError or DataTypeError for
	// invalid plans.
	Schema() (types.Schema, error)

	// Inputs returns the input nodes.
	Inputs() []Plan

	// SortedBy returns the output columns the rows are known to be sorted
	// by, ascending with nulls first.
	SortedBy() []string

	isPlan()
}

var (
	_ Plan = (*Scan)(nil)
	_ Plan = (*Filter)(nil)
	_ Plan = (*Projection)(nil)
	_ Plan = (*Aggregate)(nil)
	_ Plan = (*Join)(nil)
	_ Plan = (*Sort)(nil)
	_ Plan = (*Window)(nil)
	_ Plan = (*Union)(nil)
	_ Plan = (*Limit)(nil)
	_ Plan = (*Distinct)(nil)
)

func (*Scan) isPlan()       {}
func (*Filter) isPlan()     {}
func (*Projection) isPlan() {}
func (*Aggregate) isPlan()  {}
func (*Join) isPlan()       {}
func (*Sort) isPlan()       {}
func (*Window) isPlan()     {}
func (*Union) isPlan()      {}
func (*Limit) isPlan()      {}
func (*Distinct) isPlan()   {}

// WithInputs returns a shallow copy of p reading from inputs instead of its
// current inputs.
func WithInputs(p Plan, inputs []Plan) Plan {
	switch p := p.(type) {
	case *Scan:
		return p
	case *Filter:
		c := *p
		c.Input = inputs[0]
		return &c
	case *Projection:
		c := *p
		c.Input = inputs[0]
		return &c
	case *Aggregate:
		c := *p
		c.Input = inputs[0]
		return &c
	case *Join:
		c := *p
		c.Left, c.Right = inputs[0], inputs[1]
		return &c
	case *Sort:
		c := *p
		c.Input = inputs[0]
		return &c
	case *Window:
		c := *p
		c.Input = inputs[0]
		return &c
	case *Union:
		return &Union{Plans: slices.Clone(inputs)}
	case *Limit:
		c := *p
		c.Input = inputs[0]
		return &c
	case *Distinct:
		c := *p
		c.Input = inputs[0]
		return &c
	}
	panic(fmt.Sprintf("unexpected plan node %T", p))
}

// truncateSorted returns the longest prefix of sorted whose columns all
// satisfy keep.
func truncateSorted(sorted []string, keep func(string) bool) []string {
	for i, name := range sorted {
		if !keep(name) {
			return sorted[:i:i]
		}
	}
	return sorted
}
