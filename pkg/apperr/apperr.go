// Package apperr defines the error taxonomy shared by all domain services:
// validation, not-found, persistence, and upstream-service failures. Handlers
// and the HTTP error handler translate these kinds into client responses, so
// services never reach for transport types directly.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for boundary translation.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks malformed or missing input. Never retried.
	KindValidation
	// KindNotFound marks a record that does not exist or is not owned by the caller.
	KindNotFound
	// KindPersistence marks an underlying store read/write failure.
	KindPersistence
	// KindUpstream marks a failure from an external collaborator (AI, video, payments).
	KindUpstream
)

// Error carries a kind, a caller-visible message, and optionally the offending
// fields and a wrapped cause.
type Error struct {
	Kind   Kind
	Msg    string
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%s)", e.Msg, strings.Join(e.Fields, ", "))
	}
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error naming the offending fields.
func Validation(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// NotFound builds a KindNotFound error for the named resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Msg: resource + " not found"}
}

// Persistence wraps a store failure under KindPersistence.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Msg: op + " failed", Err: err}
}

// Upstream wraps an external-collaborator failure under KindUpstream. The
// message stays generic so provider internals never leak to clients.
func Upstream(service string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: service + " unavailable", Err: err}
}

// KindOf extracts the Kind from err, unwrapping as needed. Unclassified
// errors report KindUnknown and are treated as server faults.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// FieldsOf returns the offending fields recorded on err, if any.
func FieldsOf(err error) []string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}
