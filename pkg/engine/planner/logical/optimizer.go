package logical

import (
	"fmt"
)

// OptimizerOptions toggle the optimizer's passes.
type OptimizerOptions struct {
	PredicatePushdown  bool
	ProjectionPushdown bool
	SlicePushdown      bool
	CSE                bool
}

// DefaultOptimizerOptions enables every pass.
func DefaultOptimizerOptions() OptimizerOptions {
	return OptimizerOptions{
		PredicatePushdown:  true,
		ProjectionPushdown: true,
		SlicePushdown:      true,
		CSE:                true,
	}
}

// Optimize rewrites p into an equivalent plan that reads and computes less.
// The output schema of the plan never changes. p is validated first; an
// invalid plan returns the validation error.
func Optimize(p Plan, opts OptimizerOptions) (Plan, error) {
	want, err := p.Schema()
	if err != nil {
		return nil, err
	}

	passes := []*optimization{}
	if opts.PredicatePushdown {
		passes = append(passes, newOptimization("PredicatePushdown").withRules(&predicatePushdown{}))
	}
	passes = append(passes, newOptimization("SimplifyFilters").withRules(&mergeFilters{}, &removeNoopNodes{}))
	if opts.SlicePushdown {
		passes = append(passes, newOptimization("SlicePushdown").withRules(&slicePushdown{}))
	}
	if opts.ProjectionPushdown {
		passes = append(passes, newOptimization("ProjectionPushdown").withRules(&projectionPushdown{}))
	}
	if opts.CSE {
		passes = append(passes, newOptimization("CommonSubexpressionElimination").withRules(&commonSubexpressions{}))
	}

	out := newOptimizer(passes).optimize(p)

	got, err := out.Schema()
	if err != nil {
		return nil, fmt.Errorf("optimized plan is invalid: %w", err)
	}
	if !got.Equal(want) {
		return nil, fmt.Errorf("optimizer changed the output schema from %v to %v", want.Fields, got.Fields)
	}
	return out, nil
}

// rule is a plan transformation.
type rule interface {
	// apply returns the rewritten subtree rooted at p. It returns p itself
	// if nothing applies.
	apply(p Plan) Plan
}

type optimization struct {
	name  string
	rules []rule
}

func newOptimization(name string) *optimization {
	return &optimization{name: name}
}

func (o *optimization) withRules(rules ...rule) *optimization {
	o.rules = append(o.rules, rules...)
	return o
}

func (o *optimization) optimize(p Plan) Plan {
	iterations, maxIterations := 0, 3

	for iterations < maxIterations {
		iterations++

		before := FormatTree(p)
		for _, r := range o.rules {
			p = r.apply(p)
		}
		if FormatTree(p) == before {
			// Stop immediately if an optimization pass produced no changes.
			break
		}
	}
	return p
}

type optimizer struct {
	passes []*optimization
}

func newOptimizer(passes []*optimization) *optimizer {
	return &optimizer{passes: passes}
}

func (o *optimizer) optimize(p Plan) Plan {
	for _, pass := range o.passes {
		p = pass.optimize(p)
	}
	return p
}

// transformUp applies fn to every node of the tree rooted at p, inputs
// first.
func transformUp(p Plan, fn func(Plan) Plan) Plan {
	inputs := p.Inputs()
	if len(inputs) > 0 {
		changed := false
		next := make([]Plan, len(inputs))
		for i, in := range inputs {
			next[i] = transformUp(in, fn)
			changed = changed || next[i] != in
		}
		if changed {
			p = WithInputs(p, next)
		}
	}
	return fn(p)
}

// mapInputs returns p with fn applied to each of its inputs.
func mapInputs(p Plan, fn func(Plan) Plan) Plan {
	inputs := p.Inputs()
	if len(inputs) == 0 {
		return p
	}
	next := make([]Plan, len(inputs))
	for i, in := range inputs {
		next[i] = fn(in)
	}
	return WithInputs(p, next)
}
