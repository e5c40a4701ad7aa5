// Package errs defines the error kinds shared by the catalog packages.
//
// Every failure detected by the tree, expression, statement builder, mapper
// and store packages is an *Error carrying a Code. Callers wrap errors with
// fmt.Errorf("...: %w", err) freely; classification helpers use errors.As so
// the code survives any amount of wrapping.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes catalog errors.
type Code string

const (
	// CodeStructural indicates a metadata tree shape violation.
	CodeStructural Code = "STRUCTURAL"

	// CodeLookup indicates an unknown attribute, column, table or node.
	CodeLookup Code = "LOOKUP"

	// CodeDuplicateEntry indicates a uniqueness violation.
	CodeDuplicateEntry Code = "DUPLICATE_ENTRY"

	// CodeValue indicates a malformed value or definition, e.g. an unknown type name.
	CodeValue Code = "VALUE"

	// CodeTypeMismatch indicates an operator applied to incompatible operands.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeUnknownOperator indicates an unbound symbol in an expression.
	CodeUnknownOperator Code = "UNKNOWN_OPERATOR"

	// CodeDatabase wraps a relational driver failure.
	CodeDatabase Code = "DATABASE"
)

// Error is the single error type produced by the catalog.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any. For CodeDatabase it is the
	// driver error, unmodified.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return fmt.Sprintf("%s: %v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Structural creates a CodeStructural error.
func Structural(format string, args ...any) *Error {
	return newf(CodeStructural, format, args...)
}

// Lookup creates a CodeLookup error.
func Lookup(format string, args ...any) *Error {
	return newf(CodeLookup, format, args...)
}

// Duplicate creates a CodeDuplicateEntry error.
func Duplicate(format string, args ...any) *Error {
	return newf(CodeDuplicateEntry, format, args...)
}

// Value creates a CodeValue error.
func Value(format string, args ...any) *Error {
	return newf(CodeValue, format, args...)
}

// TypeMismatch creates a CodeTypeMismatch error.
func TypeMismatch(format string, args ...any) *Error {
	return newf(CodeTypeMismatch, format, args...)
}

// UnknownOperator creates a CodeUnknownOperator error.
func UnknownOperator(symbol string) *Error {
	return newf(CodeUnknownOperator, "unknown operator %q", symbol)
}

// Database wraps a driver error. The driver's text is kept verbatim.
func Database(op string, err error) *Error {
	return &Error{Code: CodeDatabase, Message: op, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsStructural reports whether err is a tree shape violation.
func IsStructural(err error) bool { return Is(err, CodeStructural) }

// IsLookup reports whether err is a lookup failure.
func IsLookup(err error) bool { return Is(err, CodeLookup) }

// IsDuplicate reports whether err is a uniqueness violation.
func IsDuplicate(err error) bool { return Is(err, CodeDuplicateEntry) }

// IsValue reports whether err is a malformed value or definition.
func IsValue(err error) bool { return Is(err, CodeValue) }

// IsTypeMismatch reports whether err is an operand type mismatch.
func IsTypeMismatch(err error) bool { return Is(err, CodeTypeMismatch) }

// IsUnknownOperator reports whether err is an unbound expression symbol.
func IsUnknownOperator(err error) bool { return Is(err, CodeUnknownOperator) }

// IsDatabase reports whether err wraps a driver failure.
func IsDatabase(err error) bool { return Is(err, CodeDatabase) }
