package types

import "fmt"

// JoinType denotes how rows of two inputs are combined.
type JoinType int

const (
	JoinTypeInvalid JoinType = iota

	JoinTypeInner // Rows with matching keys on both sides.
	JoinTypeLeft  // Every left row, with right columns null when unmatched.
	JoinTypeOuter // Every row of both sides.
	JoinTypeCross // Cartesian product.
	JoinTypeSemi  // Left rows with at least one match; left columns only.
	JoinTypeAnti  // Left rows without any match; left columns only.
	JoinTypeAsOf  // Left rows matched to the nearest right row along an ordered key.
)

var joinTypeStrings = map[JoinType]string{
	JoinTypeInvalid: "invalid",

	JoinTypeInner: "inner",
	JoinTypeLeft:  "left",
	JoinTypeOuter: "outer",
	JoinTypeCross: "cross",
	JoinTypeSemi:  "semi",
	JoinTypeAnti:  "anti",
	JoinTypeAsOf:  "asof",
}

func (t JoinType) String() string {
	if s, ok := joinTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("JoinType(%d)", t)
}

// KeepsRightColumns reports whether the join output contains right columns.
func (t JoinType) KeepsRightColumns() bool {
	return t != JoinTypeSemi && t != JoinTypeAnti
}

// JoinValidation is a cardinality contract checked before an equality join.
type JoinValidation int

const (
	ValidateManyToMany JoinValidation = iota // No check.
	ValidateOneToOne                         // Keys unique on both sides.
	ValidateOneToMany                        // Keys unique on the left side.
	ValidateManyToOne                        // Keys unique on the right side.
)

var joinValidationStrings = map[JoinValidation]string{
	ValidateManyToMany: "m:m",
	ValidateOneToOne:   "1:1",
	ValidateOneToMany:  "1:m",
	ValidateManyToOne:  "m:1",
}

func (v JoinValidation) String() string {
	if s, ok := joinValidationStrings[v]; ok {
		return s
	}
	return fmt.Sprintf("JoinValidation(%d)", v)
}

// LeftUnique reports whether v requires unique left keys.
func (v JoinValidation) LeftUnique() bool {
	return v == ValidateOneToOne || v == ValidateOneToMany
}

// RightUnique reports whether v requires unique right keys.
func (v JoinValidation) RightUnique() bool {
	return v == ValidateOneToOne || v == ValidateManyToOne
}

// AsOfStrategy selects which right row an as-of join matches.
type AsOfStrategy int

const (
	AsOfBackward AsOfStrategy = iota // Last right row with key <= left key.
	AsOfForward                      // First right row with key >= left key.
	AsOfNearest                      // Right row with the smallest distance; ties resolve backward.
)

var asOfStrategyStrings = map[AsOfStrategy]string{
	AsOfBackward: "backward",
	AsOfForward:  "forward",
	AsOfNearest:  "nearest",
}

func (s AsOfStrategy) String() string {
	if str, ok := asOfStrategyStrings[s]; ok {
		return str
	}
	return fmt.Sprintf("AsOfStrategy(%d)", s)
}
