// Package physical turns optimized logical plans into executable plans.
//
// A physical plan is a DAG of nodes. Every node carries the output schema
// computed during planning, so the executor never re-validates expressions.
package physical

import (
	"fmt"

	"github.com/JacekPliszka/polars/pkg/engine/internal/util/dag"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// NodeType is the kind of a physical [Node].
type NodeType uint32

const (
	NodeTypeDataFrameScan NodeType = iota
	NodeTypeFilter
	NodeTypeProjection
	NodeTypeWindow
	NodeTypeHashAggregate
	NodeTypeSortedAggregate
	NodeTypeHashJoin
	NodeTypeAsOfJoin
	NodeTypeCrossJoin
	NodeTypeSort
	NodeTypeUnion
	NodeTypeLimit
	NodeTypeDistinct
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeDataFrameScan:
		return "DataFrameScan"
	case NodeTypeFilter:
		return "Filter"
	case NodeTypeProjection:
		return "Projection"
	case NodeTypeWindow:
		return "Window"
	case NodeTypeHashAggregate:
		return "HashAggregate"
	case NodeTypeSortedAggregate:
		return "SortedAggregate"
	case NodeTypeHashJoin:
		return "HashJoin"
	case NodeTypeAsOfJoin:
		return "AsOfJoin"
	case NodeTypeCrossJoin:
		return "CrossJoin"
	case NodeTypeSort:
		return "Sort"
	case NodeTypeUnion:
		return "Union"
	case NodeTypeLimit:
		return "Limit"
	case NodeTypeDistinct:
		return "Distinct"
	default:
		return fmt.Sprintf("NodeType(%d)", t)
	}
}

// Node is a single operation of a physical plan.
type Node interface {
	// ID returns the identifier of the node, unique within its plan.
	ID() string
	// Type returns the kind of the node.
	Type() NodeType
	// Schema returns the output schema of the node.
	Schema() types.Schema

	isNode()
}

var (
	_ Node = (*DataFrameScan)(nil)
	_ Node = (*Filter)(nil)
	_ Node = (*Projection)(nil)
	_ Node = (*Window)(nil)
	_ Node = (*Aggregate)(nil)
	_ Node = (*HashJoin)(nil)
	_ Node = (*AsOfJoin)(nil)
	_ Node = (*CrossJoin)(nil)
	_ Node = (*Sort)(nil)
	_ Node = (*Union)(nil)
	_ Node = (*Limit)(nil)
	_ Node = (*Distinct)(nil)
)

// Plan is a physical query plan. Children of a node are kept in input order,
// so the first child of a join is its left input.
type Plan struct {
	graph dag.Graph[Node]
}

func (p *Plan) addNode(n Node) Node { return p.graph.Add(n) }

func (p *Plan) addEdge(e dag.Edge[Node]) error { return p.graph.AddEdge(e) }

func (p *Plan) eliminateNode(n Node) { p.graph.Eliminate(n) }

// Len returns the number of nodes in the plan.
func (p *Plan) Len() int { return p.graph.Len() }

// Children returns the inputs of n in order.
func (p *Plan) Children(n Node) []Node { return p.graph.Children(n) }

// Parents returns the nodes reading from n.
func (p *Plan) Parents(n Node) []Node { return p.graph.Parents(n) }

// Roots returns the nodes without parents.
func (p *Plan) Roots() []Node { return p.graph.Roots() }

// Root returns the single root of the plan.
func (p *Plan) Root() (Node, error) { return p.graph.Root() }

// Walk visits the nodes reachable from n in the given order.
func (p *Plan) Walk(n Node, f dag.WalkFunc[Node], order dag.WalkOrder) error {
	return p.graph.Walk(n, f, order)
}
