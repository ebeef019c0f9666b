package tree

import (
	"fmt"
	"io"
	"strings"
)

const (
	connChild     = "├── "
	connLastChild = "└── "
	indentBranch  = "│   "
	indentBlank   = "    "
)

// Printer writes a [Node] and its descendants as an indented tree.
//
//	Root
//	└── Merge #foo key_a=(value_a) key_b=(value_b, value_c)
//	    ├── Product #foobar relations=(foo, bar)
//	    │   └── Scan #foo selector=x
//	    └── Scan #baz
type Printer struct {
	w io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes root and all of its comments and children.
func (p *Printer) Print(root *Node) {
	p.writeLine("", root)
	p.printDescendants(root, "")
}

func (p *Printer) printDescendants(n *Node, prefix string) {
	if len(n.Comments) > 0 {
		commentPrefix := prefix + indentBlank
		if len(n.Children) > 0 {
			commentPrefix = prefix + indentBranch
		}
		p.printList(n.Comments, commentPrefix)
	}
	p.printList(n.Children, prefix)
}

func (p *Printer) printList(nodes []*Node, prefix string) {
	for i, child := range nodes {
		last := i == len(nodes)-1
		conn, indent := connChild, indentBranch
		if last {
			conn, indent = connLastChild, indentBlank
		}
		p.writeLine(prefix+conn, child)
		p.printDescendants(child, prefix+indent)
	}
}

func (p *Printer) writeLine(prefix string, n *Node) {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(n.Name)
	if n.ID != "" {
		sb.WriteString(" #")
		sb.WriteString(n.ID)
	}
	for _, prop := range n.Properties {
		sb.WriteByte(' ')
		sb.WriteString(prop.String())
	}
	sb.WriteByte('\n')
	_, _ = io.WriteString(p.w, sb.String())
}

// String renders the property as key=value or key=(value1, value2).
func (p Property) String() string {
	values := make([]string, len(p.Values))
	for i, v := range p.Values {
		values[i] = fmt.Sprint(v)
	}
	if p.IsMultiValue {
		return p.Key + "=(" + strings.Join(values, ", ") + ")"
	}
	return p.Key + "=" + strings.Join(values, ", ")
}

// String returns the printed tree rooted at n.
func (n *Node) String() string {
	var sb strings.Builder
	NewPrinter(&sb).Print(n)
	return sb.String()
}
