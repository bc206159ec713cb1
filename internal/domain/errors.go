package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies domain errors so adapters can map them to transport codes
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidArgument   ErrorKind = "INVALID_ARGUMENT"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	KindLockTimeout       ErrorKind = "LOCK_TIMEOUT"
	KindUnavailable       ErrorKind = "UNAVAILABLE"
	KindConflict          ErrorKind = "CONFLICT"
	KindInternal          ErrorKind = "INTERNAL"
)

// Sentinels for errors.Is checks. Any *Error of the same kind matches.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrLockTimeout       = &Error{Kind: KindLockTimeout}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Error is the structured error returned by domain rules and use cases.
// Details carries the ids involved and which invariant failed.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]string
	Err     error

	retry bool
}

// NewError creates an error of the given kind
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates an error of the given kind with a formatted message
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of the error carrying an extra detail
func (e *Error) With(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Details: details, Err: e.Err, retry: e.retry}
}

// Wrap returns a copy of the error with cause attached
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: e.Details, Err: cause, retry: e.retry}
}

// Retryable returns a copy of the error that reports itself as transient
// regardless of kind. Used for serialization and deadlock aborts.
func (e *Error) Retryable() *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Details: e.Details, Err: e.Err, retry: true}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(e.Kind)))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Transient reports whether the caller may retry the operation
func (e *Error) Transient() bool {
	return e.retry || e.Kind == KindLockTimeout || e.Kind == KindUnavailable
}

// KindOf returns the kind of the first domain error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsTransient reports whether err is safe to retry
func IsTransient(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Transient()
	}
	return false
}
