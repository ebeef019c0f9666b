// Package dag provides a generic directed acyclic graph used to hold
// physical plans.
package dag

import (
	"errors"
	"fmt"
	"slices"
)

// Node is a vertex of a [Graph].
type Node interface {
	comparable
	ID() string
}

// Edge connects a parent to one of its children.
type Edge[NodeType Node] struct {
	Parent, Child NodeType
}

type nodeSet[NodeType Node] map[NodeType]struct{}

func (s nodeSet[NodeType]) Add(n NodeType)           { s[n] = struct{}{} }
func (s nodeSet[NodeType]) Contains(n NodeType) bool { _, ok := s[n]; return ok }

// Graph is a directed acyclic graph. Children are kept in insertion order.
// The zero value is ready to use.
type Graph[NodeType Node] struct {
	order    []NodeType
	nodes    nodeSet[NodeType]
	parents  map[NodeType][]NodeType
	children map[NodeType][]NodeType
}

func (g *Graph[NodeType]) init() {
	if g.nodes == nil {
		g.nodes = make(nodeSet[NodeType])
		g.parents = make(map[NodeType][]NodeType)
		g.children = make(map[NodeType][]NodeType)
	}
}

// Add adds n to the graph and returns it. Adding a node twice is a no-op.
func (g *Graph[NodeType]) Add(n NodeType) NodeType {
	g.init()
	if !g.nodes.Contains(n) {
		g.nodes.Add(n)
		g.order = append(g.order, n)
	}
	return n
}

// AddEdge connects e.Parent to e.Child. Both nodes must already be part of
// the graph, and the edge must not introduce a cycle.
func (g *Graph[NodeType]) AddEdge(e Edge[NodeType]) error {
	g.init()
	var zero NodeType
	if e.Parent == zero || e.Child == zero {
		return errors.New("parent and child nodes must not be zero values")
	}
	if !g.nodes.Contains(e.Parent) {
		return fmt.Errorf("node %s does not exist in graph", e.Parent.ID())
	}
	if !g.nodes.Contains(e.Child) {
		return fmt.Errorf("node %s does not exist in graph", e.Child.ID())
	}
	if e.Parent == e.Child || g.reachable(e.Child, e.Parent) {
		return fmt.Errorf("edge %s -> %s would introduce a cycle", e.Parent.ID(), e.Child.ID())
	}
	if slices.Contains(g.children[e.Parent], e.Child) {
		return nil
	}
	g.children[e.Parent] = append(g.children[e.Parent], e.Child)
	g.parents[e.Child] = append(g.parents[e.Child], e.Parent)
	return nil
}

func (g *Graph[NodeType]) reachable(from, to NodeType) bool {
	found := false
	_ = g.Walk(from, func(n NodeType) error {
		if n == to {
			found = true
			return errStop
		}
		return nil
	}, PreOrderWalk)
	return found
}

var errStop = errors.New("stop")

// Len returns the number of nodes.
func (g *Graph[NodeType]) Len() int { return len(g.order) }

// Nodes returns all nodes in insertion order.
func (g *Graph[NodeType]) Nodes() []NodeType { return slices.Clone(g.order) }

// Children returns the children of n in insertion order.
func (g *Graph[NodeType]) Children(n NodeType) []NodeType { return g.children[n] }

// Parents returns the parents of n.
func (g *Graph[NodeType]) Parents(n NodeType) []NodeType { return g.parents[n] }

// Roots returns the nodes without parents, in insertion order.
func (g *Graph[NodeType]) Roots() []NodeType {
	var roots []NodeType
	for _, n := range g.order {
		if len(g.parents[n]) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Leaves returns the nodes without children, in insertion order.
func (g *Graph[NodeType]) Leaves() []NodeType {
	var leaves []NodeType
	for _, n := range g.order {
		if len(g.children[n]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Root returns the single root of the graph.
func (g *Graph[NodeType]) Root() (NodeType, error) {
	roots := g.Roots()
	if len(roots) != 1 {
		var zero NodeType
		return zero, fmt.Errorf("graph must have exactly one root node, got %d", len(roots))
	}
	return roots[0], nil
}

// Eliminate removes n from the graph. Each parent of n takes over the
// children of n at the position n had among its children.
func (g *Graph[NodeType]) Eliminate(n NodeType) {
	if !g.nodes.Contains(n) {
		return
	}
	children := g.children[n]
	for _, parent := range g.parents[n] {
		siblings := g.children[parent]
		i := slices.Index(siblings, n)
		g.children[parent] = slices.Concat(siblings[:i], children, siblings[i+1:])
	}
	for _, child := range children {
		parents := slices.DeleteFunc(slices.Clone(g.parents[child]), func(p NodeType) bool { return p == n })
		g.parents[child] = append(parents, g.parents[n]...)
	}

	delete(g.nodes, n)
	delete(g.parents, n)
	delete(g.children, n)
	g.order = slices.DeleteFunc(g.order, func(m NodeType) bool { return m == n })
}
