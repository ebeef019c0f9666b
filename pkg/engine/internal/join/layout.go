// Package join matches rows of two inputs by key and describes the columns
// of the joined output.
//
// Matching functions return row positions rather than materialized columns;
// a position of -1 stands for a missing row whose columns are null. Callers
// gather the output with [arrowutil.Take].
package join

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// DefaultSuffix is appended to right column names that collide with left
// column names.
const DefaultSuffix = "_right"

// Side identifies the input an output column comes from.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

// OutputColumn describes one column of a join result.
type OutputColumn struct {
	Side  Side
	Index int // Column index within its side's schema.
	Name  string
	Type  types.DataType

	// CoalesceIndex is the index of the right key column merged into this
	// left key column of an outer join, or -1.
	CoalesceIndex int
}

// KeyPair names the left and right key columns of one join key. A name is
// empty when that key is not a plain column reference.
type KeyPair struct {
	Left, Right string
}

// LayoutOptions control [Layout].
type LayoutOptions struct {
	Type     types.JoinType
	Suffix   string
	Coalesce bool
	Keys     []KeyPair
}

// Layout returns the output columns of a join between left and right.
// Semi and anti joins produce only left columns. Right key columns that are
// plain references are dropped, except for non-coalescing outer joins.
func Layout(left, right types.Schema, opts LayoutOptions) ([]OutputColumn, error) {
	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}

	var (
		out   = make([]OutputColumn, 0, left.Len()+right.Len())
		names = make(map[string]struct{}, left.Len()+right.Len())
	)
	for i, f := range left.Fields {
		out = append(out, OutputColumn{Side: SideLeft, Index: i, Name: f.Name, Type: f.Type, CoalesceIndex: -1})
		names[f.Name] = struct{}{}
	}
	if !opts.Type.KeepsRightColumns() {
		return out, nil
	}

	dropRight := make(map[string]string, len(opts.Keys))
	if opts.Type != types.JoinTypeOuter || opts.Coalesce {
		for _, k := range opts.Keys {
			if k.Right != "" && opts.Type != types.JoinTypeCross {
				dropRight[k.Right] = k.Left
			}
		}
	}

	for i, f := range right.Fields {
		if leftName, ok := dropRight[f.Name]; ok {
			if opts.Type == types.JoinTypeOuter && leftName != "" {
				if err := coalesceInto(out, left, leftName, i, f); err != nil {
					return nil, err
				}
			}
			continue
		}

		name := f.Name
		if _, taken := names[name]; taken {
			name += suffix
			if _, taken := names[name]; taken {
				return nil, errors.Schemaf(f.Name, "duplicate column %q after applying join suffix %q", name, suffix)
			}
		}
		names[name] = struct{}{}
		out = append(out, OutputColumn{Side: SideRight, Index: i, Name: name, Type: f.Type, CoalesceIndex: -1})
	}
	return out, nil
}

func coalesceInto(out []OutputColumn, left types.Schema, leftName string, rightIndex int, rightField types.Field) error {
	li := left.Index(leftName)
	if li < 0 {
		return errors.Schemaf(leftName, "column not found")
	}
	typ, ok := types.Supertype(out[li].Type, rightField.Type)
	if !ok {
		return errors.DataTypef(leftName, "cannot coalesce join keys of type %s and %s", out[li].Type, rightField.Type)
	}
	out[li].Type = typ
	out[li].CoalesceIndex = rightIndex
	return nil
}

// Schema returns the schema of the given output columns.
func Schema(cols []OutputColumn) types.Schema {
	fields := make([]types.Field, len(cols))
	for i, c := range cols {
		fields[i] = types.Field{Name: c.Name, Type: c.Type}
	}
	return types.NewSchema(fields...)
}

// OriginalName maps an output column name back to its name in the input
// schema of the given side. It reports false if the output column does not
// come from that side.
func OriginalName(cols []OutputColumn, output string, side Side, left, right types.Schema) (string, bool) {
	for _, c := range cols {
		if c.Name != output || c.Side != side {
			continue
		}
		if side == SideLeft {
			return left.Fields[c.Index].Name, true
		}
		return right.Fields[c.Index].Name, true
	}
	return "", false
}
