package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable classification carried by every engine error.
type ErrorKind string

const (
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindDuplicateResource      ErrorKind = "DUPLICATE_RESOURCE"
	KindValidation             ErrorKind = "VALIDATION"
	KindPermissionDenied       ErrorKind = "PERMISSION_DENIED"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindConcurrencyConflict    ErrorKind = "CONCURRENCY_CONFLICT"
	KindBusiness               ErrorKind = "BUSINESS"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrDuplicateResource      = &Error{Kind: KindDuplicateResource}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrConcurrencyConflict    = &Error{Kind: KindConcurrencyConflict}
	ErrBusiness               = &Error{Kind: KindBusiness}
)

// Error is a structured failure with a stable kind and a human message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so callers can match against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func Duplicate(format string, args ...any) error {
	return newError(KindDuplicateResource, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func PermissionDenied(format string, args ...any) error {
	return newError(KindPermissionDenied, format, args...)
}

func InvalidTransition(format string, args ...any) error {
	return newError(KindInvalidStateTransition, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(KindConcurrencyConflict, format, args...)
}

func Business(format string, args ...any) error {
	return newError(KindBusiness, format, args...)
}
