// Package apperr defines the typed failure kinds of the registration
// pipeline and the explicit mapping from kind to HTTP status code.
// Errors are plain values propagated by ordinary control flow; the central
// HTTP error handler unwraps them with errors.As.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConflict    Kind = "conflict"
	KindUpload      Kind = "upload"
	KindPersistence Kind = "persistence"
	KindUnknown     Kind = "unknown"
)

// statusByKind is the single table mapping error kinds to HTTP statuses.
var statusByKind = map[Kind]int{
	KindValidation:  http.StatusBadRequest,
	KindConflict:    http.StatusConflict,
	KindUpload:      http.StatusBadRequest,
	KindPersistence: http.StatusInternalServerError,
	KindUnknown:     http.StatusInternalServerError,
}

// Error is a classified pipeline failure. Details carries an ordered list
// of human-readable problems (may be empty).
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status for the error's kind,
// defaulting to 500 for an unmapped kind.
func (e *Error) StatusCode() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error of the given kind.
func New(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Validation reports a missing or blank required input (HTTP 400).
func Validation(message string, details ...string) *Error {
	return New(KindValidation, message, details...)
}

// Conflict reports a duplicate identity key (HTTP 409).
func Conflict(message string, details ...string) *Error {
	return New(KindConflict, message, details...)
}

// Upload reports a failed mandatory media upload (HTTP 400).
func Upload(message string, details ...string) *Error {
	return New(KindUpload, message, details...)
}

// Persistence reports a post-write consistency failure (HTTP 500).
func Persistence(message string, details ...string) *Error {
	return New(KindPersistence, message, details...)
}

// From normalizes any error into an *Error. Classified errors pass
// through unchanged; everything else becomes KindUnknown with a generic
// message so internal detail never leaks to a caller.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(KindUnknown, "something went wrong")
}
