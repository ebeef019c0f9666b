package physical

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/join"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

type base struct {
	id     string
	schema types.Schema
}

func (b *base) ID() string           { return b.id }
func (b *base) Schema() types.Schema { return b.schema }
func (b *base) isNode()              {}

// DataFrameScan reads a source. Predicates are applied to every batch in
// order, then Slice, and finally rows are narrowed to Projection.
type DataFrameScan struct {
	base

	Source logical.Source
	// Columns are read from the source. Nil reads every column.
	Columns    []string
	Predicates []logical.Expr
	Slice      *logical.SliceRange
	// Projection lists the output columns. Nil outputs Columns.
	Projection []string
}

func (*DataFrameScan) Type() NodeType { return NodeTypeDataFrameScan }

// Filter keeps the rows for which every predicate is true. Predicates are
// applied one after another, each seeing only the rows kept by the previous
// ones.
type Filter struct {
	base
	Predicates []logical.Expr
}

func (*Filter) Type() NodeType { return NodeTypeFilter }

// Projection evaluates expressions against its input.
type Projection struct {
	base
	Exprs []logical.Expr
	Mode  logical.ProjectionMode
}

func (*Projection) Type() NodeType { return NodeTypeProjection }

// Window appends window expressions. It needs its complete input.
type Window struct {
	base
	Exprs []logical.Expr
}

func (*Window) Type() NodeType { return NodeTypeWindow }

// Aggregate groups its input by Keys and evaluates Aggs per group. Sorted
// aggregates rely on rows with equal keys being adjacent in the input.
type Aggregate struct {
	base

	Keys []logical.Expr
	Aggs []logical.Expr

	Sorted       bool
	SortGroups   bool
	DropNullKeys bool
}

func (a *Aggregate) Type() NodeType {
	if a.Sorted {
		return NodeTypeSortedAggregate
	}
	return NodeTypeHashAggregate
}

// HashJoin is an inner, left, outer, semi or anti equality join. Its first
// child is the left input.
type HashJoin struct {
	base

	JoinType types.JoinType
	LeftOn   []logical.Expr
	RightOn  []logical.Expr

	Validate  types.JoinValidation
	JoinNulls bool

	// Columns describes how output columns are taken from both inputs.
	Columns []join.OutputColumn
}

func (*HashJoin) Type() NodeType { return NodeTypeHashJoin }

// AsOfJoin matches every left row to the nearest right row by an ordered
// key, optionally within groups of equal by-keys.
type AsOfJoin struct {
	base

	LeftOn, RightOn logical.Expr
	LeftBy, RightBy []string

	Strategy     types.AsOfStrategy
	Tolerance    float64
	HasTolerance bool

	Columns []join.OutputColumn
}

func (*AsOfJoin) Type() NodeType { return NodeTypeAsOfJoin }

// CrossJoin produces the Cartesian product of its inputs.
type CrossJoin struct {
	base
	Columns []join.OutputColumn
}

func (*CrossJoin) Type() NodeType { return NodeTypeCrossJoin }

// Sort orders rows by Keys, keeping the input order of equal rows. A
// positive Fetch keeps only the first Fetch rows of the result.
type Sort struct {
	base
	Keys  []logical.SortKey
	Fetch int
}

func (*Sort) Type() NodeType { return NodeTypeSort }

// Union concatenates its inputs in order.
type Union struct {
	base
}

func (*Union) Type() NodeType { return NodeTypeUnion }

// Limit skips Offset rows and returns at most Length rows.
type Limit struct {
	base
	Offset int
	Length int
}

func (*Limit) Type() NodeType { return NodeTypeLimit }

// Distinct keeps the first row of every set of rows with equal Subset
// values, or equal values in all columns if Subset is empty.
type Distinct struct {
	base
	Subset []string
}

func (*Distinct) Type() NodeType { return NodeTypeDistinct }
