package logical

import (
	"io"
	"strings"

	"github.com/JacekPliszka/polars/pkg/engine/planner/internal/tree"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// PrintTree writes p as an indented tree to w.
func PrintTree(w io.Writer, p Plan) {
	tree.NewPrinter(w).Print(BuildTree(p))
}

// FormatTree returns p rendered by [PrintTree].
func FormatTree(p Plan) string {
	var sb strings.Builder
	PrintTree(&sb, p)
	return sb.String()
}

// BuildTree converts p and its inputs into a tree for printing.
func BuildTree(p Plan) *tree.Node {
	node := toTreeNode(p)
	for _, input := range p.Inputs() {
		node.Children = append(node.Children, BuildTree(input))
	}
	return node
}

func toTreeNode(p Plan) *tree.Node {
	switch p := p.(type) {
	case *Scan:
		props := []tree.Property{tree.NewProperty("source", false, p.Source.Name())}
		if p.Projection != nil {
			props = append(props, tree.NewProperty("columns", true, toAnySlice(p.Projection)...))
		}
		if p.Predicate != nil {
			props = append(props, tree.NewProperty("predicate", false, p.Predicate))
		}
		if p.Slice != nil {
			props = append(props,
				tree.NewProperty("offset", false, p.Slice.Offset),
				tree.NewProperty("length", false, p.Slice.Length),
			)
		}
		return tree.NewNode("Scan", "", props...)

	case *Filter:
		return tree.NewNode("Filter", "", tree.NewProperty("predicate", false, p.Predicate))

	case *Projection:
		return tree.NewNode(p.Mode.String(), "", tree.NewProperty("exprs", true, toAnySlice(p.Exprs)...))

	case *Aggregate:
		props := []tree.Property{
			tree.NewProperty("keys", true, toAnySlice(p.Keys)...),
			tree.NewProperty("aggs", true, toAnySlice(p.Aggs)...),
		}
		if p.SortGroups {
			props = append(props, tree.NewProperty("sorted", false, true))
		}
		if p.DropNullKeys {
			props = append(props, tree.NewProperty("drop_null_keys", false, true))
		}
		return tree.NewNode("Aggregate", "", props...)

	case *Join:
		return tree.NewNode("Join", "", joinProperties(p.JoinOptions)...)

	case *Sort:
		return tree.NewNode("Sort", "", tree.NewProperty("by", true, toAnySlice(p.Keys)...))

	case *Window:
		return tree.NewNode("Window", "", tree.NewProperty("exprs", true, toAnySlice(p.Exprs)...))

	case *Union:
		return tree.NewNode("Union", "")

	case *Limit:
		return tree.NewNode("Limit", "",
			tree.NewProperty("offset", false, p.Offset),
			tree.NewProperty("length", false, p.Length),
		)

	case *Distinct:
		var props []tree.Property
		if len(p.Subset) > 0 {
			props = append(props, tree.NewProperty("subset", true, toAnySlice(p.Subset)...))
		}
		return tree.NewNode("Distinct", "", props...)
	}
	return tree.NewNode(p.Type().String(), "")
}

func joinProperties(o JoinOptions) []tree.Property {
	props := []tree.Property{tree.NewProperty("type", false, o.Type)}
	if len(o.LeftOn) > 0 {
		props = append(props,
			tree.NewProperty("left_on", true, toAnySlice(o.LeftOn)...),
			tree.NewProperty("right_on", true, toAnySlice(o.RightOn)...),
		)
	}
	if o.Type == types.JoinTypeAsOf {
		props = append(props, tree.NewProperty("strategy", false, o.AsOf.Strategy))
		if o.AsOf.HasTolerance {
			props = append(props, tree.NewProperty("tolerance", false, o.AsOf.Tolerance))
		}
		if len(o.AsOf.LeftBy) > 0 {
			props = append(props,
				tree.NewProperty("left_by", true, toAnySlice(o.AsOf.LeftBy)...),
				tree.NewProperty("right_by", true, toAnySlice(o.AsOf.RightBy)...),
			)
		}
	}
	if o.Suffix != "" {
		props = append(props, tree.NewProperty("suffix", false, o.Suffix))
	}
	if o.Validate != 0 {
		props = append(props, tree.NewProperty("validate", false, o.Validate))
	}
	if o.JoinNulls {
		props = append(props, tree.NewProperty("join_nulls", false, true))
	}
	if o.Coalesce {
		props = append(props, tree.NewProperty("coalesce", false, true))
	}
	return props
}

func toAnySlice[T any](s []T) []any {
	ret := make([]any, len(s))
	for i := range s {
		ret[i] = s[i]
	}
	return ret
}
