// Package apierror provides the closed error taxonomy used across services
// and handlers. All errors returned to clients go through this package to
// ensure a consistent wire shape and to prevent leaking internal details
// (stack traces, DB errors, storage provider responses, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	KindValidation   Kind = iota // 400 — missing/invalid input
	KindUnauthorized             // 401 — no valid session
	KindForbidden                // 403 — role/office mismatch
	KindNotFound                 // 404 — missing entity
	KindConflict                 // 409 — duplicate unique key, version conflict
	KindStore                    // 500 — remote object-store failure
	KindInternal                 // 500 — everything else
)

// Error carries a kind, a client-safe message, and optional per-field detail.
// The wrapped cause (if any) is logged server-side, never serialized.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ValidationFields wraps multiple field errors.
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Error de validacion", Fields: fields}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Store wraps a remote object-store failure. The provider error is kept for
// logging but never reaches the client.
func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Error interno del servidor", Err: err}
}

// Response is the canonical error envelope for all 4xx/5xx HTTP responses.
type Response struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// StatusOf maps an error to its HTTP status. Non-apierror values fall
// through to 500.
func StatusOf(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ResponseOf builds the wire envelope for an error. 5xx-class errors get a
// generic message regardless of what the underlying cause says.
func ResponseOf(err error) Response {
	var e *Error
	if !errors.As(err, &e) || StatusOf(e) == http.StatusInternalServerError {
		return Response{Message: "Error interno del servidor"}
	}
	return Response{Message: e.Message, Errors: e.Fields}
}

// KindOf returns the kind of an apierror, or KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal
	}
	return e.Kind
}
