// Package apperr defines the error taxonomy shared by the engine services.
//
// Every error a caller can act on carries a Kind. Services declare their own
// sentinels on top of these kinds (see service/*/errors.go) and handlers map
// the kind to an HTTP status via httputil.Fail.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a recoverable engine error.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidTransition      Kind = "invalid_transition"
	KindDuplicateEnrollment    Kind = "duplicate_enrollment"
	KindSequenceNotActive      Kind = "sequence_not_active"
	KindConcurrentModification Kind = "concurrent_modification"
	KindValidation             Kind = "validation"
)

// Error is a typed engine error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches on kind. A target with an empty message matches every error of
// the same kind; otherwise the messages must match too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Kind-only sentinels, usable with errors.Is.
var (
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrDuplicateEnrollment    = &Error{Kind: KindDuplicateEnrollment}
	ErrSequenceNotActive      = &Error{Kind: KindSequenceNotActive}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrValidation             = &Error{Kind: KindValidation}
)

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf is shorthand for a validation error.
func Validationf(format string, args ...any) *Error {
	return Newf(KindValidation, format, args...)
}

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing message of a typed error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
