package types

// CanCast reports whether values of type from can be converted to type to.
// Conversions from String may still fail for individual values.
func CanCast(from, to DataType) bool {
	switch {
	case from == to, from == Null:
		return true
	case to == Null || to == Invalid || from == Invalid:
		return false
	case to == String:
		return true
	case to == Categorical:
		return from == String
	case from == String:
		return to.IsNumeric() || to == Bool || to.IsTemporal()
	case (from.IsNumeric() || from == Bool) && (to.IsNumeric() || to == Bool):
		return true
	case from.IsTemporal() && to.IsInteger(), from.IsInteger() && to.IsTemporal():
		return true
	}
	return false
}
