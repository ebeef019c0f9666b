package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrinter(t *testing.T) {
	root := NewNode("Root", "")
	merge := root.AddChild("Merge", "foo", []Property{
		NewProperty("key_a", true, "value_a"),
		NewProperty("key_b", true, "value_b", "value_c"),
	})
	product := merge.AddChild("Product", "foobar", []Property{
		NewProperty("relations", true, "foo", "bar"),
	})
	product.AddChild("Scan", "foo", []Property{NewProperty("selector", false, "x")})
	product.AddChild("Scan", "bar", nil)
	merge.AddChild("Scan", "baz", []Property{NewProperty("limit", false, 10)})

	var sb strings.Builder
	NewPrinter(&sb).Print(root)

	expected := `
Root
└── Merge #foo key_a=(value_a) key_b=(value_b, value_c)
    ├── Product #foobar relations=(foo, bar)
    │   ├── Scan #foo selector=x
    │   └── Scan #bar
    └── Scan #baz limit=10
`
	require.Equal(t, expected, "\n"+sb.String())
}

func TestPrinter_Comments(t *testing.T) {
	filter := NewNode("Filter", "")
	pred := filter.AddComment("BinaryExpr", "", []Property{NewProperty("op", false, ">")})
	pred.AddChild("Column", "age", nil)
	pred.AddChild("Literal", "", []Property{NewProperty("value", false, 21)})

	scan := filter.AddChild("Scan", "users", nil)
	scan.AddComment("Column", "name", nil)

	expected := `
Filter
│   └── BinaryExpr op=>
│       ├── Column #age
│       └── Literal value=21
└── Scan #users
        └── Column #name
`
	require.Equal(t, expected, "\n"+filter.String())
}
