package types

import "fmt"

// ErrorCode represents a FHIRPath engine error code.
type ErrorCode string

// Error codes, grouped by phase.
const (
	// S0xxx: lexer/parser errors
	ErrStringNotClosed  ErrorCode = "S0101"
	ErrNumberOutOfRange ErrorCode = "S0102"
	ErrInvalidEscape    ErrorCode = "S0103"
	ErrUnexpectedEnd    ErrorCode = "S0104"
	ErrCommentNotClosed ErrorCode = "S0106"
	ErrSyntaxError      ErrorCode = "S0201"
	ErrExpectedToken    ErrorCode = "S0202"

	// F0xxx: function dispatch errors
	ErrUnknownFunction ErrorCode = "F0401"
	ErrInvalidArity    ErrorCode = "F0402"
	ErrTypeMismatch    ErrorCode = "F0410"

	// D0xxx: evaluation errors
	ErrUndefinedVariable ErrorCode = "D0301"
	ErrSingletonRequired ErrorCode = "D0302"
	ErrIncompatibleTypes ErrorCode = "D0303"
	ErrDivisionByZero    ErrorCode = "D0304"
	ErrMaxDepthExceeded  ErrorCode = "D0310"
	ErrRegistryFrozen    ErrorCode = "D0320"
	ErrDuplicateFunction ErrorCode = "D0321"
)

// Error is a structured engine error with a stable code.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Err      error
}

// NewError creates an engine error. Position -1 means no source position.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{Code: code, Message: message, Position: position}
}

func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// UnknownFunctionError reports a function name not present in the registry.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("%s: unknown function %q", ErrUnknownFunction, e.Name)
}

// ArityError reports an argument count outside a function's declared
// bounds. Max is -1 when the function accepts unbounded arguments.
type ArityError struct {
	Name   string
	Min    int
	Max    int
	Actual int
}

func (e *ArityError) Error() string {
	if e.Max < 0 {
		return fmt.Sprintf("%s: %s expects at least %d argument(s), got %d",
			ErrInvalidArity, e.Name, e.Min, e.Actual)
	}
	if e.Min == e.Max {
		return fmt.Sprintf("%s: %s expects %d argument(s), got %d",
			ErrInvalidArity, e.Name, e.Min, e.Actual)
	}
	return fmt.Sprintf("%s: %s expects between %d and %d argument(s), got %d",
		ErrInvalidArity, e.Name, e.Min, e.Max, e.Actual)
}

// TypeMismatchError reports a function or operator receiving a value shape
// it cannot act on.
type TypeMismatchError struct {
	Name string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s expects %s, got %s", ErrTypeMismatch, e.Name, e.Want, e.Got)
}
