package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an engine error. The first letter gives its kind.
type ErrorCode string

const (
	// M0xxx: compile errors
	ErrNoApplicableSignature ErrorCode = "M0101"
	ErrUnknownFunction       ErrorCode = "M0102"
	ErrTypeMismatch          ErrorCode = "M0103"
	ErrUnknownSymbol         ErrorCode = "M0104"

	// E0xxx: evaluation errors
	ErrNoAggregator        ErrorCode = "E0101"
	ErrNoRollup            ErrorCode = "E0102"
	ErrAggregationTooLarge ErrorCode = "E0103"
	ErrHierarchyMismatch   ErrorCode = "E0104"
	ErrIndexOutOfBounds    ErrorCode = "E0105"
	ErrCanceled            ErrorCode = "E0106"
	ErrRecursionLimit      ErrorCode = "E0107"
	ErrConversion          ErrorCode = "E0108"
	ErrFunctionFailed      ErrorCode = "E0109"

	// I0xxx: internal invariant violations
	ErrInternal ErrorCode = "I0001"
)

// ErrorKind classifies an error by where it arises.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindCompile
	KindEvaluation
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindEvaluation:
		return "evaluation"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Kind returns the kind encoded in the code prefix.
func (c ErrorCode) Kind() ErrorKind {
	if c == "" {
		return KindUnknown
	}
	switch c[0] {
	case 'M':
		return KindCompile
	case 'E':
		return KindEvaluation
	case 'I':
		return KindInternal
	}
	return KindUnknown
}

// Error represents a structured engine error.
type Error struct {
	Code    ErrorCode
	Message string
	// Position is the offset of the offending node in the source text, or
	// -1 when unknown.
	Position int
	Token    string
	// Function names the offending function definition, if any.
	Function string
	Err      error
}

// NewError creates a new error with an unknown position.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: -1,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Function != "" {
		msg = e.Function + ": " + msg
	}
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Kind returns the error kind.
func (e *Error) Kind() ErrorKind {
	return e.Code.Kind()
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithFunction records the function definition that raised the error.
func (e *Error) WithFunction(name string) *Error {
	e.Function = name
	return e
}

// WithPosition sets the source position.
func (e *Error) WithPosition(pos int) *Error {
	e.Position = pos
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Is matches errors by code, so errors.Is(err, types.NewError(code, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCompileError reports whether err is a compile-time error.
func IsCompileError(err error) bool { return CodeOf(err).Kind() == KindCompile }

// IsEvaluationError reports whether err is a run-time evaluation error.
func IsEvaluationError(err error) bool { return CodeOf(err).Kind() == KindEvaluation }

// IsInternalError reports whether err signals a broken invariant.
func IsInternalError(err error) bool { return CodeOf(err).Kind() == KindInternal }
