package extract

import (
	"errors"
	"fmt"

	"github.com/openalpha/exprlint/internal/ir"
)

// ErrorCode categorizes fatal extraction errors.
type ErrorCode string

const (
	// CodeSyntax indicates the host parser rejected the expression text.
	CodeSyntax ErrorCode = "X001"

	// CodeUnsupported indicates a syntactically valid construct outside
	// the supported grammar subset (subscripting, lambdas, control
	// flow, ...). Rejected explicitly rather than silently skipped so
	// unvetted constructs cannot pass.
	CodeUnsupported ErrorCode = "X002"
)

// Error represents a fatal extraction failure. Extraction stops
// immediately; the caller must not validate a partial result.
type Error struct {
	Code    ErrorCode
	Message string
	Pos     ir.Pos
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %d:%d: %s", e.Code, e.Pos.Line, e.Pos.Col, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSyntaxError reports whether err is a host-parser syntax error.
// Uses errors.As to handle wrapped errors.
func IsSyntaxError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == CodeSyntax
	}
	return false
}

// IsUnsupportedError reports whether err is an unsupported-construct
// error.
func IsUnsupportedError(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == CodeUnsupported
	}
	return false
}

func unsupported(pos ir.Pos, format string, args ...any) *Error {
	return &Error{
		Code:    CodeUnsupported,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}
