// Package types defines the compiled-expression and AST types shared
// by the parser and interpreter, plus the structured error type both
// of them raise.
package types

import "fmt"

// ErrorCode identifies the category of a lex, parse, or eval error.
// The letter prefix mirrors the teacher's S0xxx/T0xxx/D0xxx convention
// (pkg/types/errors.go in sandrolain/gosonata): L for lexer, P for
// parser, E for evaluator.
type ErrorCode string

const (
	// Lxxx: lexer errors (spec.md §4.1, §7 LexError)
	ErrUnexpectedChar    ErrorCode = "L001"
	ErrUnterminatedStr   ErrorCode = "L002"
	ErrBadEscape         ErrorCode = "L003"
	ErrBadNumber         ErrorCode = "L004"

	// Pxxx: parser errors (spec.md §4.2, §7 ParseError)
	ErrUnexpectedToken ErrorCode = "P001"
	ErrTrailingInput   ErrorCode = "P002"
	ErrBadObjectKey    ErrorCode = "P003"

	// Exxx: evaluation errors (spec.md §4.3, §7 EvalError)
	ErrType            ErrorCode = "E001"
	ErrKeyMissing      ErrorCode = "E002"
	ErrIndexOutOfRange ErrorCode = "E003"
	ErrDivByZero       ErrorCode = "E004"
	ErrUnboundVariable ErrorCode = "E005"
	ErrUser            ErrorCode = "E006"
	ErrUnknownCall     ErrorCode = "E007"
)

// Error is the structured error type raised by the lexer, parser, and
// interpreter. It carries a machine-readable Code alongside a human
// Message and the source Position the error occurred at, following the
// teacher's types.Error shape (pkg/types/errors.go).
type Error struct {
	Code     ErrorCode
	Message  string
	Position int // byte offset into program text, or -1 if not applicable
}

// NewError creates an Error with the given code, message and position.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{Code: code, Message: message, Position: position}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// IsAccessOrType reports whether err is one of the categories that `?`
// (Optional) is allowed to suppress: Type, KeyMissing, IndexOutOfRange
// (spec.md §4.3 "Optional(E)", §7 Propagation).
func IsAccessOrType(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	switch e.Code {
	case ErrType, ErrKeyMissing, ErrIndexOutOfRange:
		return true
	default:
		return false
	}
}
