// Package apperr defines the error taxonomy shared by the codec, sanitizer and
// reconciliation layers. It knows nothing about HTTP; the boundary in
// internal/platform/middleware translates a Kind into a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layer.
type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidPayload
	KindValidationFailed
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPayload:
		return "invalid-payload"
	case KindValidationFailed:
		return "validation-failed"
	case KindNotFound:
		return "not-found"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Error is a classified error. Field names the offending payload field for
// validation failures and is empty otherwise.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == ""
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidPayload   = &Error{Kind: KindInvalidPayload}
	ErrValidationFailed = &Error{Kind: KindValidationFailed}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
)

// Invalid reports a structurally unusable payload (wrong or missing
// resourceType, body that is not a JSON object).
func Invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidPayload, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a field-level rule violation.
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidationFailed, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that an identifier resolved to no record.
func NotFound(resourceType, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s/%s not found", resourceType, id)}
}

// Conflict reports a natural-key collision that could not be reconciled.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as unexpected unless it already carries a Kind.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnexpected.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// FieldOf returns the offending field carried by err, if any.
func FieldOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Field
	}
	return ""
}
