// Package tree renders plans as indented trees for explain output.
package tree

// Property is a key with one or more values attached to a [Node]. Single
// values print as key=value, lists as key=(a, b).
type Property struct {
	Key    string
	Values []any

	// IsMultiValue prints Values as a parenthesized list, even when there is
	// only one value.
	IsMultiValue bool
}

// NewProperty returns a property. Set multi for list-valued properties.
func NewProperty(key string, multi bool, values ...any) Property {
	return Property{Key: key, Values: values, IsMultiValue: multi}
}

// Node is one line of a printed tree.
type Node struct {
	// ID is printed after the name as #ID when not empty.
	ID         string
	Name       string
	Properties []Property
	Children   []*Node

	// Comments are printed before the children and one level deeper. They
	// hold tree-shaped details of the node itself, such as expressions.
	Comments []*Node
}

// NewNode returns a node without children.
func NewNode(name, id string, properties ...Property) *Node {
	return &Node{ID: id, Name: name, Properties: properties}
}

// AddChild appends a new child to n and returns it.
func (n *Node) AddChild(name, id string, properties []Property) *Node {
	child := NewNode(name, id, properties...)
	n.Children = append(n.Children, child)
	return child
}

// AddComment appends a new comment node to n and returns it.
func (n *Node) AddComment(name, id string, properties []Property) *Node {
	node := NewNode(name, id, properties...)
	n.Comments = append(n.Comments, node)
	return node
}
