package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrSyntax      ErrorCode = "syntax"
	ErrUnknownName ErrorCode = "unknown_name"
	ErrInvalid     ErrorCode = "invalid"
	ErrNotFound    ErrorCode = "not_found"
	ErrBackend     ErrorCode = "backend"
	ErrCancelled   ErrorCode = "cancelled"
)

// Error is the single error type surfaced by the library. Fragment holds the
// part of a search string that caused a syntax or lookup failure.
type Error struct {
	Code     ErrorCode
	Msg      string
	Fragment string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Code, e.Msg)
	if e.Fragment != "" {
		base = fmt.Sprintf("%s (near %q)", base, e.Fragment)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, msg string) *Error { return &Error{Code: code, Msg: msg} }

func Wrap(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

func Syntax(msg, fragment string) *Error {
	return &Error{Code: ErrSyntax, Msg: msg, Fragment: fragment}
}

// UnknownName reports a tag or flag name that the registry does not know.
func UnknownName(kind, name string) *Error {
	return &Error{Code: ErrUnknownName, Msg: "unknown " + kind, Fragment: name}
}

func Invalid(msg string) *Error { return &Error{Code: ErrInvalid, Msg: msg} }

func NotFound(what string) *Error {
	return &Error{Code: ErrNotFound, Msg: what + " not found"}
}

// Backend wraps a store error. Context errors are mapped to ErrCancelled so
// callers can tell an aborted search from a broken one.
func Backend(msg string, cause error) *Error {
	if stderrors.Is(cause, context.Canceled) || stderrors.Is(cause, context.DeadlineExceeded) {
		return &Error{Code: ErrCancelled, Msg: msg, Cause: cause}
	}
	return &Error{Code: ErrBackend, Msg: msg, Cause: cause}
}

func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}
