// Package result is the structured outcome every analysis operation returns
// at its boundary: a success flag, a human-readable message and stable
// machine-readable codes. Raw errors never cross it.
package result

import (
	"errors"
	"fmt"
	"log/slog"
)

// Kind classifies a failure. The HTTP layer maps kinds onto status codes.
type Kind string

const (
	KindNone          Kind = ""
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindDispatch      Kind = "dispatch"
	KindLimitExceeded Kind = "limit_exceeded"
	KindPersistence   Kind = "persistence"
	KindCancelled     Kind = "cancelled"
	KindInternal      Kind = "internal"
)

// Error is a sentinel failure with a stable code.
type Error struct {
	Kind Kind
	Code string
}

func NewError(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string { return e.Code }

var ErrInternal = NewError(KindInternal, "internal_error")

type Result[T any] struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Data     T        `json:"data,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	Kind  Kind  `json:"-"`
	cause error
}

// OK builds a successful result.
func OK[T any](msg string, data T) Result[T] {
	return Result[T]{Success: true, Message: msg, Data: data}
}

// Fail builds a failed result from a sentinel. Errors that are not *Error are
// reported as internal so their text never reaches the caller.
func Fail[T any](msg string, err error) Result[T] {
	r := Result[T]{Message: msg, cause: err}

	var re *Error
	if errors.As(err, &re) {
		r.Kind = re.Kind
		r.Errors = []string{re.Code}
		return r
	}

	r.Kind = KindInternal
	r.Errors = []string{ErrInternal.Code}
	return r
}

// Degraded builds a successful result that still carries a warning, such as a
// job that was persisted but could not be queued.
func Degraded[T any](msg string, data T, warning error) Result[T] {
	r := OK(msg, data)
	r.cause = warning
	var re *Error
	if errors.As(warning, &re) {
		r.Warnings = []string{re.Code}
	} else {
		r.Warnings = []string{warning.Error()}
	}
	return r
}

// Err returns the failure or warning cause, nil for a clean success.
func (r Result[T]) Err() error { return r.cause }

// Recover converts a panic raised below the boundary into a failed result.
// It must be deferred directly by the operation that owns res.
func Recover[T any](res *Result[T], logger *slog.Logger, op, msg string, sentinel *Error) {
	rec := recover()
	if rec == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("recovered panic", "op", op, "panic", fmt.Sprint(rec))
	if sentinel == nil {
		sentinel = ErrInternal
	}
	*res = Fail[T](msg, sentinel)
}
