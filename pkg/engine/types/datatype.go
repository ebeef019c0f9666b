package types

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

const (
	typeInvalid = "invalid"
)

// DataType is the logical type of a column or a value.
type DataType uint32

const (
	Invalid DataType = iota // zero-value is an invalid type

	Null        // NULL value; adopts the type of the other operand.
	Bool        // Boolean value.
	Int32       // Signed 32bit integer value.
	Int64       // Signed 64bit integer value.
	Float64     // 64bit floating point value.
	String      // UTF-8 string value.
	Timestamp   // Nanosecond timestamp.
	Duration    // Nanosecond duration.
	Categorical // String value encoded against a StringCache.
)

// String returns the string representation of the DataType.
func (t DataType) String() string {
	switch t {
	case Null:
		return "Null"
	case Bool:
		return "Bool"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case String:
		return "String"
	case Timestamp:
		return "Timestamp"
	case Duration:
		return "Duration"
	case Categorical:
		return "Categorical"
	default:
		return typeInvalid
	}
}

func (t DataType) IsNumeric() bool { return t == Int32 || t == Int64 || t == Float64 }
func (t DataType) IsInteger() bool { return t == Int32 || t == Int64 }
func (t DataType) IsTemporal() bool {
	return t == Timestamp || t == Duration
}

// IsStringLike reports whether values of t are read as strings.
func (t DataType) IsStringLike() bool { return t == String || t == Categorical }

// IsOrdered reports whether values of t can be sorted and compared with
// <, <=, > and >=.
func (t DataType) IsOrdered() bool {
	switch t {
	case Bool, Int32, Int64, Float64, String, Timestamp, Duration, Categorical:
		return true
	}
	return false
}

var (
	arrowTimestamp   = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}
	arrowDuration    = &arrow.DurationType{Unit: arrow.Nanosecond}
	arrowCategorical = &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint32, ValueType: arrow.BinaryTypes.String}
)

// ArrowType returns the Arrow type used to store values of t.
func (t DataType) ArrowType() arrow.DataType {
	switch t {
	case Null:
		return arrow.Null
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case String:
		return arrow.BinaryTypes.String
	case Timestamp:
		return arrowTimestamp
	case Duration:
		return arrowDuration
	case Categorical:
		return arrowCategorical
	default:
		return nil
	}
}

// FromArrow returns the DataType for an Arrow type.
func FromArrow(dt arrow.DataType) (DataType, error) {
	switch dt.ID() {
	case arrow.NULL:
		return Null, nil
	case arrow.BOOL:
		return Bool, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING:
		return String, nil
	case arrow.TIMESTAMP:
		if dt.(*arrow.TimestampType).Unit == arrow.Nanosecond {
			return Timestamp, nil
		}
	case arrow.DURATION:
		if dt.(*arrow.DurationType).Unit == arrow.Nanosecond {
			return Duration, nil
		}
	case arrow.DICTIONARY:
		dict := dt.(*arrow.DictionaryType)
		if dict.IndexType.ID() == arrow.UINT32 && dict.ValueType.ID() == arrow.STRING {
			return Categorical, nil
		}
	}
	return Invalid, fmt.Errorf("unsupported arrow type %s", dt)
}

// rank orders numeric types along the promotion ladder.
func rank(t DataType) int {
	switch t {
	case Int32:
		return 1
	case Int64:
		return 2
	case Float64:
		return 3
	}
	return 0
}

// Supertype returns the type both a and b can be losslessly represented as
// for comparisons and conditionals. Integers widen to Int64 and then
// Float64; floats never narrow to integers. Null adopts the other type.
func Supertype(a, b DataType) (DataType, bool) {
	switch {
	case a == b:
		return a, true
	case a == Null:
		return b, true
	case b == Null:
		return a, true
	case a.IsNumeric() && b.IsNumeric():
		if rank(a) > rank(b) {
			return a, true
		}
		return b, true
	case a.IsStringLike() && b.IsStringLike():
		return String, true
	}
	return Invalid, false
}
