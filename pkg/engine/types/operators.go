package types

import "fmt"

// UnaryOp denotes the kind of unary operation to perform.
type UnaryOp int

// Recognized values of [UnaryOp].
const (
	// UnaryOpInvalid indicates an invalid unary operation.
	UnaryOpInvalid UnaryOp = iota

	UnaryOpNot       // Logical NOT operation (!).
	UnaryOpNeg       // Arithmetic negation (-).
	UnaryOpIsNull    // Null check.
	UnaryOpIsNotNull // Non-null check.
)

var unaryOpStrings = map[UnaryOp]string{
	UnaryOpInvalid: "invalid",

	UnaryOpNot:       "not",
	UnaryOpNeg:       "neg",
	UnaryOpIsNull:    "is_null",
	UnaryOpIsNotNull: "is_not_null",
}

// String returns the string representation of the UnaryOp.
func (op UnaryOp) String() string {
	if s, ok := unaryOpStrings[op]; ok {
		return s
	}
	return fmt.Sprintf("UnaryOp(%d)", op)
}

// BinaryOp denotes the kind of binary operation to perform.
type BinaryOp int

// Recognized values of [BinaryOp].
const (
	// BinaryOpInvalid indicates an invalid binary operation.
	BinaryOpInvalid BinaryOp = iota

	BinaryOpEq  // Equality comparison (==).
	BinaryOpNeq // Inequality comparison (!=).
	BinaryOpGt  // Greater than comparison (>).
	BinaryOpGte // Greater than or equal comparison (>=).
	BinaryOpLt  // Less than comparison (<).
	BinaryOpLte // Less than or equal comparison (<=).
	BinaryOpAnd // Logical AND operation (&&).
	BinaryOpOr  // Logical OR operation (||).
	BinaryOpXor // Logical XOR operation (^).

	BinaryOpAdd // Addition operation (+).
	BinaryOpSub // Subtraction operation (-).
	BinaryOpMul // Multiplication operation (*).
	BinaryOpDiv // Division operation (/).
	BinaryOpMod // Modulo operation (%).
)

var binaryOpStrings = map[BinaryOp]string{
	BinaryOpInvalid: "invalid",

	BinaryOpEq:  "==",
	BinaryOpNeq: "!=",
	BinaryOpGt:  ">",
	BinaryOpGte: ">=",
	BinaryOpLt:  "<",
	BinaryOpLte: "<=",
	BinaryOpAnd: "&",
	BinaryOpOr:  "|",
	BinaryOpXor: "^",

	BinaryOpAdd: "+",
	BinaryOpSub: "-",
	BinaryOpMul: "*",
	BinaryOpDiv: "/",
	BinaryOpMod: "%",
}

// String returns a string representation of the BinaryOp.
func (op BinaryOp) String() string {
	if s, ok := binaryOpStrings[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

func (op BinaryOp) IsComparison() bool { return op >= BinaryOpEq && op <= BinaryOpLte }
func (op BinaryOp) IsLogical() bool    { return op >= BinaryOpAnd && op <= BinaryOpXor }
func (op BinaryOp) IsArithmetic() bool { return op >= BinaryOpAdd && op <= BinaryOpMod }

// ResultType returns the type produced by applying op to operands of type l
// and r. ok is false if the operand types are incompatible.
func (op BinaryOp) ResultType(l, r DataType) (DataType, bool) {
	switch {
	case op.IsComparison():
		st, ok := Supertype(l, r)
		if !ok {
			return Invalid, false
		}
		if op != BinaryOpEq && op != BinaryOpNeq && !st.IsOrdered() && st != Null {
			return Invalid, false
		}
		return Bool, true

	case op.IsLogical():
		if (l == Bool || l == Null) && (r == Bool || r == Null) {
			return Bool, true
		}
		return Invalid, false

	case op.IsArithmetic():
		return arithmeticResult(op, l, r)
	}
	return Invalid, false
}

func arithmeticResult(op BinaryOp, l, r DataType) (DataType, bool) {
	// Null operands adopt the other side, so an all-null expression still has
	// a concrete type when the other side is known.
	if l == Null && r == Null {
		return Null, true
	}
	if l == Null {
		l = r
	}
	if r == Null {
		r = l
	}

	switch {
	case l.IsNumeric() && r.IsNumeric():
		if op == BinaryOpDiv || l == Float64 || r == Float64 {
			return Float64, true
		}
		return Int64, true

	case l == Timestamp && r == Timestamp && op == BinaryOpSub:
		return Duration, true
	case l == Timestamp && r == Duration && (op == BinaryOpAdd || op == BinaryOpSub):
		return Timestamp, true
	case l == Duration && r == Timestamp && op == BinaryOpAdd:
		return Timestamp, true
	case l == Duration && r == Duration && (op == BinaryOpAdd || op == BinaryOpSub || op == BinaryOpMod):
		return Duration, true
	case l == Duration && r.IsInteger() && (op == BinaryOpMul || op == BinaryOpDiv):
		return Duration, true
	case l.IsInteger() && r == Duration && op == BinaryOpMul:
		return Duration, true

	case l.IsStringLike() && r.IsStringLike() && op == BinaryOpAdd:
		return String, true
	}
	return Invalid, false
}

// UnaryResultType returns the type produced by applying op to an operand of
// type t.
func (op UnaryOp) ResultType(t DataType) (DataType, bool) {
	switch op {
	case UnaryOpNot:
		if t == Bool || t == Null {
			return Bool, true
		}
	case UnaryOpNeg:
		if t.IsNumeric() || t == Duration || t == Null {
			if t == Int32 {
				return Int64, true
			}
			return t, true
		}
	case UnaryOpIsNull, UnaryOpIsNotNull:
		return Bool, true
	}
	return Invalid, false
}
