package physical

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/JacekPliszka/polars/pkg/engine/internal/util/dag"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Planner creates an executable physical plan from a logical plan.
// Planning is done in two steps:
//  1. Convert
//     Every logical node becomes exactly one physical node. The planner
//     chooses the operator implementation, such as a sorted aggregation for
//     input that is already sorted by the group keys, and records the
//     schema of every node.
//  2. Optimize
//     a) Merge filters into the scans they read from.
//     b) Push the row count of a Limit into the Sort below it.
//
// A logical subplan referenced several times is planned once per reference.
type Planner struct {
	plan   *Plan
	nextID int
}

// NewPlanner creates a new planner instance.
func NewPlanner() *Planner {
	return &Planner{}
}

// Build converts a given logical plan into a physical plan and returns an
// error if the logical plan is invalid. Node IDs are assigned in pre-order,
// starting at 0 for the root.
func (p *Planner) Build(lp logical.Plan) (*Plan, error) {
	if lp == nil {
		return nil, errors.New("logical plan is nil")
	}
	p.plan, p.nextID = &Plan{}, 0
	if _, err := p.process(lp); err != nil {
		return nil, err
	}
	return p.plan, nil
}

// process converts lp and its inputs, and returns the node for lp.
func (p *Planner) process(lp logical.Plan) (Node, error) {
	schema, err := lp.Schema()
	if err != nil {
		return nil, err
	}
	b := base{id: strconv.Itoa(p.nextID), schema: schema}
	p.nextID++

	node, err := p.convert(lp, b)
	if err != nil {
		return nil, err
	}
	p.plan.addNode(node)

	for _, input := range lp.Inputs() {
		child, err := p.process(input)
		if err != nil {
			return nil, err
		}
		if err := p.plan.addEdge(dag.Edge[Node]{Parent: node, Child: child}); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Planner) convert(lp logical.Plan, b base) (Node, error) {
	switch lp := lp.(type) {
	case *logical.Scan:
		node := &DataFrameScan{
			base:       b,
			Source:     lp.Source,
			Columns:    lp.ReadColumns(),
			Slice:      lp.Slice,
			Projection: lp.Projection,
		}
		if lp.Predicate != nil {
			node.Predicates = logical.SplitConjunction(lp.Predicate)
		}
		return node, nil

	case *logical.Filter:
		return &Filter{base: b, Predicates: logical.SplitConjunction(lp.Predicate)}, nil

	case *logical.Projection:
		return &Projection{base: b, Exprs: lp.Exprs, Mode: lp.Mode}, nil

	case *logical.Window:
		return &Window{base: b, Exprs: lp.Exprs}, nil

	case *logical.Aggregate:
		return &Aggregate{
			base:         b,
			Keys:         lp.Keys,
			Aggs:         lp.Aggs,
			Sorted:       lp.InputSortedByKeys(),
			SortGroups:   lp.SortGroups,
			DropNullKeys: lp.DropNullKeys,
		}, nil

	case *logical.Join:
		return p.convertJoin(lp, b)

	case *logical.Sort:
		return &Sort{base: b, Keys: lp.Keys}, nil

	case *logical.Union:
		return &Union{base: b}, nil

	case *logical.Limit:
		return &Limit{base: b, Offset: lp.Offset, Length: lp.Length}, nil

	case *logical.Distinct:
		return &Distinct{base: b, Subset: lp.Subset}, nil
	}
	return nil, fmt.Errorf("unsupported logical plan node %s", lp.Type())
}

func (p *Planner) convertJoin(lp *logical.Join, b base) (Node, error) {
	cols, _, _, err := lp.Layout()
	if err != nil {
		return nil, err
	}

	switch lp.JoinOptions.Type {
	case types.JoinTypeCross:
		return &CrossJoin{base: b, Columns: cols}, nil

	case types.JoinTypeAsOf:
		return &AsOfJoin{
			base:         b,
			LeftOn:       lp.LeftOn[0],
			RightOn:      lp.RightOn[0],
			LeftBy:       lp.AsOf.LeftBy,
			RightBy:      lp.AsOf.RightBy,
			Strategy:     lp.AsOf.Strategy,
			Tolerance:    lp.AsOf.Tolerance,
			HasTolerance: lp.AsOf.HasTolerance,
			Columns:      cols,
		}, nil
	}

	return &HashJoin{
		base:      b,
		JoinType:  lp.JoinOptions.Type,
		LeftOn:    lp.LeftOn,
		RightOn:   lp.RightOn,
		Validate:  lp.Validate,
		JoinNulls: lp.JoinNulls,
		Columns:   cols,
	}, nil
}

// Optimize applies the physical optimizations to plan in place.
func (p *Planner) Optimize(plan *Plan) (*Plan, error) {
	if len(plan.Roots()) != 1 {
		return nil, errors.New("physical plan must only have exactly one root node")
	}
	optimizations := []*optimization{
		newOptimization("FilterMerge", plan).withRules(
			&mergeScanFilter{plan: plan},
			&removeNoopFilter{plan: plan},
		),
		newOptimization("LimitPushdown", plan).withRules(
			&limitIntoSort{plan: plan},
		),
	}
	optimizer := newOptimizer(plan, optimizations)
	optimizer.optimize()
	return plan, nil
}
