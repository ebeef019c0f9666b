package types

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Literal is a typed constant value. A Literal with a nil value is null.
//
// Values are stored in their widest Go representation: bool, int32, int64,
// float64, string, and int64 nanoseconds for Timestamp and Duration.
type Literal struct {
	typ   DataType
	value any
}

// LiteralValue is the set of Go types that can be turned into a Literal.
type LiteralValue interface {
	~bool | ~int | ~int32 | ~int64 | ~float64 | ~string | time.Time
}

// NewLiteral returns a Literal holding v.
func NewLiteral[T LiteralValue](v T) Literal {
	switch v := any(v).(type) {
	case bool:
		return Literal{typ: Bool, value: v}
	case int:
		return Literal{typ: Int64, value: int64(v)}
	case int32:
		return Literal{typ: Int32, value: v}
	case int64:
		return Literal{typ: Int64, value: v}
	case float64:
		return Literal{typ: Float64, value: v}
	case string:
		return Literal{typ: String, value: v}
	case time.Time:
		return Literal{typ: Timestamp, value: v.UnixNano()}
	case time.Duration:
		return Literal{typ: Duration, value: int64(v)}
	}

	// Named types with one of the underlying kinds above.
	return literalFromKind(any(v))
}

func literalFromKind(v any) Literal {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return Literal{typ: Bool, value: rv.Bool()}
	case reflect.Int32:
		return Literal{typ: Int32, value: int32(rv.Int())}
	case reflect.Int, reflect.Int64:
		return Literal{typ: Int64, value: rv.Int()}
	case reflect.Float64:
		return Literal{typ: Float64, value: rv.Float()}
	case reflect.String:
		return Literal{typ: String, value: rv.String()}
	}
	return Literal{typ: Invalid}
}

// NullLiteral returns an untyped null.
func NullLiteral() Literal { return Literal{typ: Null} }

// TypedNull returns a null of type t.
func TypedNull(t DataType) Literal { return Literal{typ: t} }

// NewTimestamp returns a Timestamp literal from nanoseconds since the epoch.
func NewTimestamp(ns int64) Literal { return Literal{typ: Timestamp, value: ns} }

// NewDuration returns a Duration literal from nanoseconds.
func NewDuration(ns int64) Literal { return Literal{typ: Duration, value: ns} }

// NewValue returns a Literal of type t holding v, which must already use
// the Go representation documented on Literal.
func NewValue(t DataType, v any) Literal { return Literal{typ: t, value: v} }

func (l Literal) Type() DataType { return l.typ }
func (l Literal) Value() any     { return l.value }
func (l Literal) IsNull() bool   { return l.value == nil }

// Bool returns the value of a Bool literal.
func (l Literal) Bool() bool { v, _ := l.value.(bool); return v }

// Int returns the value of an integer, Timestamp or Duration literal as
// int64.
func (l Literal) Int() int64 {
	switch v := l.value.(type) {
	case int32:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// Float returns the value of a numeric literal as float64.
func (l Literal) Float() float64 {
	switch v := l.value.(type) {
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// Str returns the value of a String or Categorical literal.
func (l Literal) Str() string { v, _ := l.value.(string); return v }

// String returns the canonical representation of the literal. Structurally
// different literals always render differently.
func (l Literal) String() string {
	if l.value == nil {
		if l.typ == Null || l.typ == Invalid {
			return "null"
		}
		return "null::" + l.typ.String()
	}
	switch l.typ {
	case Bool:
		return strconv.FormatBool(l.Bool())
	case Int32:
		return strconv.FormatInt(l.Int(), 10) + "i32"
	case Int64:
		return strconv.FormatInt(l.Int(), 10)
	case Float64:
		return formatFloat(l.Float())
	case String:
		return strconv.Quote(l.Str())
	case Categorical:
		return "cat(" + strconv.Quote(l.Str()) + ")"
	case Timestamp:
		return time.Unix(0, l.Int()).UTC().Format(time.RFC3339Nano)
	case Duration:
		return time.Duration(l.Int()).String()
	}
	return fmt.Sprint(l.value)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
