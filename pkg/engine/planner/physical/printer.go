package physical

import (
	"strings"

	"github.com/JacekPliszka/polars/pkg/engine/internal/join"
	"github.com/JacekPliszka/polars/pkg/engine/planner/internal/tree"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// BuildTree converts a physical plan node and its children into a tree structure
// that can be used for visualization and debugging purposes.
func BuildTree(p *Plan, n Node) *tree.Node {
	return toTree(p, n)
}

func toTree(p *Plan, n Node) *tree.Node {
	root := toTreeNode(n)
	for _, child := range p.Children(n) {
		if ch := toTree(p, child); ch != nil {
			root.Children = append(root.Children, ch)
		}
	}
	return root
}

func toTreeNode(n Node) *tree.Node {
	treeNode := tree.NewNode(n.Type().String(), n.ID())
	switch node := n.(type) {
	case *DataFrameScan:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("source", false, node.Source.Name()),
		}
		if node.Columns != nil {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("columns", true, toAnySlice(node.Columns)...))
		}
		if len(node.Predicates) > 0 {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("predicates", true, toAnySlice(node.Predicates)...))
		}
		if node.Slice != nil {
			treeNode.Properties = append(treeNode.Properties,
				tree.NewProperty("offset", false, node.Slice.Offset),
				tree.NewProperty("length", false, node.Slice.Length),
			)
		}
		if node.Projection != nil {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("projection", true, toAnySlice(node.Projection)...))
		}
	case *Filter:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("predicates", true, toAnySlice(node.Predicates)...),
		}
	case *Projection:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("mode", false, node.Mode),
			tree.NewProperty("exprs", true, toAnySlice(node.Exprs)...),
		}
	case *Window:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("exprs", true, toAnySlice(node.Exprs)...),
		}
	case *Aggregate:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("keys", true, toAnySlice(node.Keys)...),
			tree.NewProperty("aggs", true, toAnySlice(node.Aggs)...),
		}
		if node.SortGroups {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("sort_groups", false, true))
		}
		if node.DropNullKeys {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("drop_null_keys", false, true))
		}
	case *HashJoin:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("type", false, node.JoinType),
			tree.NewProperty("left_on", true, toAnySlice(node.LeftOn)...),
			tree.NewProperty("right_on", true, toAnySlice(node.RightOn)...),
		}
		if node.Validate != types.ValidateManyToMany {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("validate", false, node.Validate))
		}
		if node.JoinNulls {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("join_nulls", false, true))
		}
		treeNode.Properties = append(treeNode.Properties, outputProperty(node.Columns))
	case *AsOfJoin:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("left_on", false, node.LeftOn),
			tree.NewProperty("right_on", false, node.RightOn),
			tree.NewProperty("strategy", false, node.Strategy),
		}
		if len(node.LeftBy) > 0 {
			treeNode.Properties = append(treeNode.Properties,
				tree.NewProperty("left_by", true, toAnySlice(node.LeftBy)...),
				tree.NewProperty("right_by", true, toAnySlice(node.RightBy)...),
			)
		}
		if node.HasTolerance {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("tolerance", false, node.Tolerance))
		}
		treeNode.Properties = append(treeNode.Properties, outputProperty(node.Columns))
	case *CrossJoin:
		treeNode.Properties = []tree.Property{outputProperty(node.Columns)}
	case *Sort:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("by", true, toAnySlice(node.Keys)...),
		}
		if node.Fetch > 0 {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("fetch", false, node.Fetch))
		}
	case *Limit:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("offset", false, node.Offset),
			tree.NewProperty("length", false, node.Length),
		}
	case *Distinct:
		if len(node.Subset) > 0 {
			treeNode.Properties = []tree.Property{
				tree.NewProperty("subset", true, toAnySlice(node.Subset)...),
			}
		}
	}
	return treeNode
}

func outputProperty(cols []join.OutputColumn) tree.Property {
	names := make([]any, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return tree.NewProperty("output", true, names...)
}

func toAnySlice[T any](s []T) []any {
	ret := make([]any, len(s))
	for i := range s {
		ret[i] = s[i]
	}
	return ret
}

// PrintAsTree converts a physical [Plan] into a human-readable tree representation.
// It processes each root node in the plan graph, and returns the combined
// string output of all trees joined by newlines.
func PrintAsTree(p *Plan) string {
	results := make([]string, 0, len(p.Roots()))

	for _, root := range p.Roots() {
		sb := &strings.Builder{}
		printer := tree.NewPrinter(sb)
		node := BuildTree(p, root)
		printer.Print(node)
		results = append(results, sb.String())
	}

	return strings.Join(results, "\n")
}
