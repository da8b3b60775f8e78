// Package apperror defines the error taxonomy surfaced to API callers.
// Each error carries the HTTP status and a stable business code; internal
// detail is attached with WithReason for logging only and never rendered.
package apperror

import (
	"errors"
	"net/http"
)

// AppError is implemented by every error the HTTP layer knows how to render.
type AppError interface {
	error
	HTTPCode() int
	ErrorCode() string
	Message() string
}

// Error is the concrete AppError.
type Error struct {
	httpCode  int
	errorCode string
	message   string
	reason    string
	details   any
}

func New(httpCode int, errorCode, message string) *Error {
	return &Error{httpCode: httpCode, errorCode: errorCode, message: message}
}

func (e *Error) Error() string {
	if e.reason != "" {
		return e.message + ": " + e.reason
	}
	return e.message
}

func (e *Error) HTTPCode() int     { return e.httpCode }
func (e *Error) ErrorCode() string { return e.errorCode }
func (e *Error) Message() string   { return e.message }

// Reason is server-side detail suitable for logs.
func (e *Error) Reason() string { return e.reason }

// Details is client-safe structured detail (validation field messages).
func (e *Error) Details() any { return e.details }

// Is matches on the business code so WithReason copies still compare equal
// to the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.errorCode == t.errorCode
}

// WithReason returns a copy carrying log-only detail.
func (e *Error) WithReason(reason string) *Error {
	cp := *e
	cp.reason = reason
	return &cp
}

// WithDetails returns a copy carrying client-safe detail.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.details = details
	return &cp
}

var (
	ErrDuplicateUser  = New(http.StatusConflict, "DUPLICATE_USER", "a user with that email already exists")
	ErrAuthentication = New(http.StatusUnauthorized, "UNAUTHENTICATED", "could not validate credentials")
	ErrAuthorization  = New(http.StatusForbidden, "FORBIDDEN", "insufficient scopes")
	ErrNotFound       = New(http.StatusNotFound, "NOT_FOUND", "resource not found")
	ErrValidation     = New(http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid payload")
	ErrInternal       = New(http.StatusInternalServerError, "INTERNAL", "internal error")
)

// From resolves err to an *Error, mapping anything unknown to ErrInternal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithReason(err.Error())
}
