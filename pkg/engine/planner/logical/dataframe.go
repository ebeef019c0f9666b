package logical

import (
	"github.com/JacekPliszka/polars/pkg/engine/frame"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// DataFrame builds a logical plan. Every method returns a new DataFrame and
// leaves the receiver unchanged; nothing is validated or executed until the
// plan's schema is requested or the plan is collected.
type DataFrame struct {
	plan Plan
}

// FromFrame starts a plan reading the in-memory frame f.
func FromFrame(name string, f *frame.Frame, opts ...FrameSourceOption) *DataFrame {
	return FromSource(NewFrameSource(name, f, opts...))
}

// FromSource starts a plan reading src.
func FromSource(src Source) *DataFrame {
	return &DataFrame{plan: &Scan{Source: src}}
}

// FromPlan wraps an existing plan.
func FromPlan(p Plan) *DataFrame { return &DataFrame{plan: p} }

// Plan returns the plan built so far.
func (df *DataFrame) Plan() Plan { return df.plan }

// Schema validates the plan and returns its output schema.
func (df *DataFrame) Schema() (types.Schema, error) { return df.plan.Schema() }

// String renders the plan as a tree.
func (df *DataFrame) String() string { return FormatTree(df.plan) }

func (df *DataFrame) Filter(predicate Expr) *DataFrame {
	return FromPlan(&Filter{Input: df.plan, Predicate: predicate})
}

// Select outputs exprs only.
func (df *DataFrame) Select(exprs ...Expr) *DataFrame {
	return FromPlan(&Projection{Input: df.plan, Exprs: exprs, Mode: ProjectionSelect})
}

// WithColumns adds columns computed by exprs, replacing existing columns of
// the same name. All exprs are evaluated against the input columns.
func (df *DataFrame) WithColumns(exprs ...Expr) *DataFrame {
	for _, e := range exprs {
		if ContainsWindow(e) {
			return FromPlan(&Window{Input: df.plan, Exprs: exprs})
		}
	}
	return FromPlan(&Projection{Input: df.plan, Exprs: exprs, Mode: ProjectionExpand})
}

func (df *DataFrame) Drop(columns ...string) *DataFrame {
	return FromPlan(&Projection{Input: df.plan, Exprs: Cols(columns...), Mode: ProjectionDrop})
}

// GroupBy starts a grouped aggregation by keys.
func (df *DataFrame) GroupBy(keys ...Expr) *GroupBy {
	return &GroupBy{input: df.plan, keys: keys}
}

// Join joins df with other.
func (df *DataFrame) Join(other *DataFrame, opts JoinOptions) *DataFrame {
	return FromPlan(&Join{Left: df.plan, Right: other.plan, JoinOptions: opts})
}

// JoinOn joins df with other on equally named key columns.
func (df *DataFrame) JoinOn(other *DataFrame, typ types.JoinType, on ...string) *DataFrame {
	return df.Join(other, JoinOptions{Type: typ, LeftOn: Cols(on...), RightOn: Cols(on...)})
}

// CrossJoin pairs every row of df with every row of other.
func (df *DataFrame) CrossJoin(other *DataFrame) *DataFrame {
	return df.Join(other, JoinOptions{Type: types.JoinTypeCross})
}

// JoinAsOf matches every row of df to the nearest row of other by the
// ordered keys leftOn and rightOn.
func (df *DataFrame) JoinAsOf(other *DataFrame, leftOn, rightOn string, opts AsOfOptions) *DataFrame {
	return df.Join(other, JoinOptions{
		Type:    types.JoinTypeAsOf,
		LeftOn:  []Expr{Col(leftOn)},
		RightOn: []Expr{Col(rightOn)},
		AsOf:    opts,
	})
}

// Sort orders rows by keys.
func (df *DataFrame) Sort(keys ...SortKey) *DataFrame {
	return FromPlan(&Sort{Input: df.plan, Keys: keys})
}

// SortBy orders rows by columns, ascending with nulls first.
func (df *DataFrame) SortBy(columns ...string) *DataFrame {
	keys := make([]SortKey, len(columns))
	for i, c := range columns {
		keys[i] = Asc(Col(c))
	}
	return df.Sort(keys...)
}

// Asc sorts by e ascending, nulls first.
func Asc(e Expr) SortKey { return SortKey{Expr: e} }

// Desc sorts by e descending, nulls last.
func Desc(e Expr) SortKey { return SortKey{Expr: e, Descending: true, NullsLast: true} }

// Limit keeps the first n rows.
func (df *DataFrame) Limit(n int) *DataFrame { return df.Slice(0, n) }

// Slice keeps length rows starting at offset.
func (df *DataFrame) Slice(offset, length int) *DataFrame {
	return FromPlan(&Limit{Input: df.plan, Offset: offset, Length: length})
}

// Union appends the rows of others to df.
func (df *DataFrame) Union(others ...*DataFrame) *DataFrame {
	plans := make([]Plan, 0, len(others)+1)
	plans = append(plans, df.plan)
	for _, o := range others {
		plans = append(plans, o.plan)
	}
	return FromPlan(&Union{Plans: plans})
}

// Unique removes duplicate rows, comparing subset or all columns, and keeps
// the first occurrence.
func (df *DataFrame) Unique(subset ...string) *DataFrame {
	return FromPlan(&Distinct{Input: df.plan, Subset: subset})
}

// GroupBy is a grouped aggregation under construction.
type GroupBy struct {
	input        Plan
	keys         []Expr
	sorted       bool
	dropNullKeys bool
}

// Sorted orders the output groups by key.
func (g *GroupBy) Sorted() *GroupBy {
	c := *g
	c.sorted = true
	return &c
}

// DropNullKeys excludes rows with null keys.
func (g *GroupBy) DropNullKeys() *GroupBy {
	c := *g
	c.dropNullKeys = true
	return &c
}

// Agg computes aggs per group.
func (g *GroupBy) Agg(aggs ...Expr) *DataFrame {
	return FromPlan(&Aggregate{
		Input:        g.input,
		Keys:         g.keys,
		Aggs:         aggs,
		SortGroups:   g.sorted,
		DropNullKeys: g.dropNullKeys,
	})
}
