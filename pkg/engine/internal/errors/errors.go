package errors

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Every error produced while building,
// optimizing, or executing a plan wraps exactly one of these, so callers can
// branch with [errors.Is].
var (
	ErrSchema         = errors.New("schema error")          // unresolved column reference, duplicate name
	ErrDataType       = errors.New("data type error")       // incompatible operand types, failed cast
	ErrOrder          = errors.New("order error")           // as-of join precondition violated
	ErrJoinValidation = errors.New("join validation error") // join cardinality contract violated
	ErrShape          = errors.New("shape error")           // mismatched lengths
	ErrCompute        = errors.New("compute error")         // overflow, invalid argument
)

// Error carries an error kind together with the identity of the column or
// expression that caused it.
type Error struct {
	Kind    error
	Subject string
	Msg     string
}

func (e *Error) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Subject, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func newf(kind error, subject, format string, args ...any) error {
	return &Error{Kind: kind, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

func Schemaf(subject, format string, args ...any) error {
	return newf(ErrSchema, subject, format, args...)
}

func DataTypef(subject, format string, args ...any) error {
	return newf(ErrDataType, subject, format, args...)
}

func Orderf(subject, format string, args ...any) error {
	return newf(ErrOrder, subject, format, args...)
}

func JoinValidationf(subject, format string, args ...any) error {
	return newf(ErrJoinValidation, subject, format, args...)
}

func Shapef(subject, format string, args ...any) error {
	return newf(ErrShape, subject, format, args...)
}

func Computef(subject, format string, args ...any) error {
	return newf(ErrCompute, subject, format, args...)
}

// Kind returns the error kind wrapped by err, or nil if err does not wrap
// one of the engine's kinds.
func Kind(err error) error {
	for _, kind := range []error{ErrSchema, ErrDataType, ErrOrder, ErrJoinValidation, ErrShape, ErrCompute} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
