package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testNode string

func (n testNode) ID() string { return string(n) }

func TestGraph(t *testing.T) {
	var g Graph[testNode]
	a, b, c, d := g.Add("a"), g.Add("b"), g.Add("c"), g.Add("d")

	require.NoError(t, g.AddEdge(Edge[testNode]{Parent: a, Child: b}))
	require.NoError(t, g.AddEdge(Edge[testNode]{Parent: a, Child: c}))
	require.NoError(t, g.AddEdge(Edge[testNode]{Parent: b, Child: d}))
	require.NoError(t, g.AddEdge(Edge[testNode]{Parent: c, Child: d}))
	require.NoError(t, g.AddEdge(Edge[testNode]{Parent: c, Child: d}), "duplicate edges are ignored")

	require.Equal(t, 4, g.Len())
	require.Equal(t, []testNode{b, c}, g.Children(a))
	require.Equal(t, []testNode{b, c}, g.Parents(d))
	require.Equal(t, []testNode{a}, g.Roots())
	require.Equal(t, []testNode{d}, g.Leaves())

	root, err := g.Root()
	require.NoError(t, err)
	require.Equal(t, a, root)

	require.Error(t, g.AddEdge(Edge[testNode]{Parent: d, Child: a}), "cycle")
	require.Error(t, g.AddEdge(Edge[testNode]{Parent: a, Child: "x"}), "unknown child")
	require.Error(t, g.AddEdge(Edge[testNode]{Parent: a, Child: ""}), "zero child")
}

func TestWalk(t *testing.T) {
	var g Graph[testNode]
	a, b, c, d := g.Add("a"), g.Add("b"), g.Add("c"), g.Add("d")
	for _, e := range []Edge[testNode]{{a, b}, {a, c}, {b, d}, {c, d}} {
		require.NoError(t, g.AddEdge(e))
	}

	for _, tt := range []struct {
		order  WalkOrder
		expect []testNode
	}{
		{PreOrderWalk, []testNode{a, b, d, c}},
		{PostOrderWalk, []testNode{d, b, c, a}},
	} {
		var visited []testNode
		err := g.Walk(a, func(n testNode) error {
			visited = append(visited, n)
			return nil
		}, tt.order)
		require.NoError(t, err)
		require.Equal(t, tt.expect, visited)
	}

	require.Error(t, g.Walk(a, func(testNode) error { return nil }, WalkOrder(9)))
}

func TestEliminate(t *testing.T) {
	var g Graph[testNode]
	a, b, c, d := g.Add("a"), g.Add("b"), g.Add("c"), g.Add("d")
	for _, e := range []Edge[testNode]{{a, b}, {a, d}, {b, c}} {
		require.NoError(t, g.AddEdge(e))
	}

	g.Eliminate(b)

	require.Equal(t, 3, g.Len())
	require.Equal(t, []testNode{c, d}, g.Children(a))
	require.Equal(t, []testNode{a}, g.Parents(c))
	require.Equal(t, []testNode{a}, g.Roots())

	g.Eliminate("x")
	require.Equal(t, 3, g.Len())
}
