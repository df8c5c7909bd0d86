// Package apierr defines the error taxonomy shared across skillsmith's
// components. Every external operation returns one of these kinds (or wraps
// a lower-level error with one), so callers can branch on Kind without
// string-matching messages.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds from the skill-creation error taxonomy.
type Kind string

const (
	InvalidInput      Kind = "InvalidInput"
	NotFound          Kind = "NotFound"
	Conflict          Kind = "Conflict"
	LMTransient       Kind = "LMTransient"
	LMPermanent       Kind = "LMPermanent"
	ValidationFailed  Kind = "ValidationFailed"
	PersistenceError  Kind = "PersistenceError"
	PathEscape        Kind = "PathEscape"
	MalformedArtifact Kind = "MalformedArtifact"
	Cancelled         Kind = "Cancelled"
)

// Error is the tagged result-variant the spec's design notes call for at
// module boundaries: a Kind plus a human message and optional structured
// details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it as the Cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches structured details and returns the same *Error for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
// Returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
