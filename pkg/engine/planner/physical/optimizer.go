package physical

import (
	"slices"

	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
)

// A rule is a tranformation that can be applied on a Node.
type rule interface {
	// apply tries to apply the transformation on the node.
	// It returns a boolean indicating whether the transformation has been applied.
	apply(Node) bool
}

// removeNoopFilter is a rule that removes Filter nodes without predicates.
type removeNoopFilter struct {
	plan *Plan
}

// apply implements rule.
func (r *removeNoopFilter) apply(node Node) bool {
	switch node := node.(type) {
	case *Filter:
		if len(node.Predicates) == 0 {
			r.plan.eliminateNode(node)
			return true
		}
	}
	return false
}

var _ rule = (*removeNoopFilter)(nil)

// mergeScanFilter is a rule that moves the leading row-wise predicates of a
// Filter into the DataFrameScan it reads from, so they are applied while
// reading. Scans with a slice keep their filters, since the slice is taken
// after the scan predicates.
type mergeScanFilter struct {
	plan *Plan
}

// apply implements rule.
func (r *mergeScanFilter) apply(node Node) bool {
	filter, ok := node.(*Filter)
	if !ok {
		return false
	}
	children := r.plan.Children(filter)
	if len(children) != 1 {
		return false
	}
	scan, ok := children[0].(*DataFrameScan)
	if !ok || scan.Slice != nil || len(r.plan.Parents(scan)) != 1 {
		return false
	}

	n := slices.IndexFunc(filter.Predicates, func(e logical.Expr) bool { return !logical.IsRowLocal(e) })
	if n < 0 {
		n = len(filter.Predicates)
	}
	if n == 0 {
		return false
	}

	merged := filter.Predicates[:n]
	if scan.Columns != nil {
		for _, name := range logical.Columns(merged...) {
			if !slices.Contains(scan.Columns, name) {
				scan.Columns = append(scan.Columns, name)
			}
		}
	}
	scan.Predicates = append(slices.Clone(scan.Predicates), merged...)
	filter.Predicates = slices.Clone(filter.Predicates[n:])
	return true
}

var _ rule = (*mergeScanFilter)(nil)

// limitIntoSort is a rule that lets a Sort stop after the rows a Limit
// directly above it can return.
type limitIntoSort struct {
	plan *Plan
}

// apply implements rule.
func (r *limitIntoSort) apply(node Node) bool {
	limit, ok := node.(*Limit)
	if !ok {
		return false
	}
	for _, child := range r.plan.Children(limit) {
		sort, ok := child.(*Sort)
		if !ok || len(r.plan.Parents(sort)) != 1 {
			continue
		}
		fetch := limit.Offset + limit.Length
		if fetch <= 0 || (sort.Fetch > 0 && sort.Fetch <= fetch) {
			continue
		}
		sort.Fetch = fetch
		return true
	}
	return false
}

var _ rule = (*limitIntoSort)(nil)

// optimization represents a single optimization pass and can hold multiple rules.
type optimization struct {
	plan  *Plan
	name  string
	rules []rule
}

func newOptimization(name string, plan *Plan) *optimization {
	return &optimization{
		name: name,
		plan: plan,
	}
}

func (o *optimization) withRules(rules ...rule) *optimization {
	o.rules = append(o.rules, rules...)
	return o
}

// optimize applies the rules from the root of the plan until they stop
// changing it. The root is looked up again on every iteration, since rules
// may eliminate it.
func (o *optimization) optimize() {
	iterations, maxIterations := 0, 3

	for iterations < maxIterations {
		iterations++

		root, err := o.plan.Root()
		if err != nil || !o.applyRules(root) {
			// Stop immediately if an optimization pass produced no changes.
			break
		}
	}
}

func (o *optimization) applyRules(node Node) bool {
	anyChanged := false

	for _, child := range slices.Clone(o.plan.Children(node)) {
		if o.applyRules(child) {
			anyChanged = true
		}
	}

	for _, rule := range o.rules {
		if rule.apply(node) {
			anyChanged = true
		}
	}

	return anyChanged
}

// The optimizer can optimize physical plans using the provided optimization passes.
type optimizer struct {
	plan   *Plan
	passes []*optimization
}

func newOptimizer(plan *Plan, passes []*optimization) *optimizer {
	return &optimizer{plan: plan, passes: passes}
}

func (o *optimizer) optimize() {
	for _, pass := range o.passes {
		pass.optimize()
	}
}
