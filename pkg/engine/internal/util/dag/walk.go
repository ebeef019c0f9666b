package dag

import "fmt"

// WalkOrder selects when a node is passed to a [WalkFunc] relative to its
// children.
type WalkOrder uint8

const (
	// PreOrderWalk visits a node before its children.
	PreOrderWalk WalkOrder = iota
	// PostOrderWalk visits a node after all of its children.
	PostOrderWalk
)

// WalkFunc is called for every node reached by [Graph.Walk]. A non-nil error
// ends the walk.
type WalkFunc[NodeType Node] func(n NodeType) error

// Walk visits every node reachable from n once, depth first, in child order.
// Nodes with several parents are visited the first time they are reached.
func (g *Graph[NodeType]) Walk(n NodeType, f WalkFunc[NodeType], order WalkOrder) error {
	if order != PreOrderWalk && order != PostOrderWalk {
		return fmt.Errorf("unsupported walk order %d", order)
	}
	w := walker[NodeType]{g: g, fn: f, post: order == PostOrderWalk, seen: make(nodeSet[NodeType])}
	return w.visit(n)
}

type walker[NodeType Node] struct {
	g    *Graph[NodeType]
	fn   WalkFunc[NodeType]
	post bool
	seen nodeSet[NodeType]
}

func (w *walker[NodeType]) visit(n NodeType) error {
	if w.seen.Contains(n) {
		return nil
	}
	w.seen.Add(n)

	if !w.post {
		if err := w.fn(n); err != nil {
			return err
		}
	}
	for _, child := range w.g.children[n] {
		if err := w.visit(child); err != nil {
			return err
		}
	}
	if w.post {
		return w.fn(n)
	}
	return nil
}
