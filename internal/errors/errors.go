// Package errors provides coded domain errors for DiVino.
//
// Gateway and storage code return typed errors; the navigation layer turns
// them into the single user-facing error message, and the HTTP layer maps
// codes to status codes:
//
//	if errors.Is(err, errors.ErrQuotaExceeded) {
//	    return fallbackCatalog(), nil
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is = errors.Is
	As = errors.As
)

// Code is a machine-readable error code.
type Code string

const (
	CodeRequestFailed     Code = "REQUEST_FAILED"
	CodeQuotaExceeded     Code = "QUOTA_EXCEEDED"
	CodeNoResults         Code = "NO_RESULTS"
	CodeStorageReadFailed Code = "STORAGE_READ_FAILED"
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeBusy              Code = "BUSY"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeNoResults:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeBusy:
		return http.StatusConflict
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeRequestFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors by code. A quota error is also a request failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeQuotaExceeded && t.Code == CodeRequestFailed
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrRequestFailed     = &Error{Code: CodeRequestFailed, Message: "request failed"}
	ErrQuotaExceeded     = &Error{Code: CodeQuotaExceeded, Message: "quota exceeded"}
	ErrNoResults         = &Error{Code: CodeNoResults, Message: "no results found"}
	ErrStorageReadFailed = &Error{Code: CodeStorageReadFailed, Message: "storage read failed"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrBusy              = &Error{Code: CodeBusy, Message: "a request is already in progress"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// RequestFailed wraps a model or network failure.
func RequestFailed(op string, err error) *Error {
	return &Error{Code: CodeRequestFailed, Message: op + " failed", cause: err}
}

// QuotaExceeded wraps a rate-limit or quota response from the model.
func QuotaExceeded(op string, err error) *Error {
	return &Error{Code: CodeQuotaExceeded, Message: op + ": quota exceeded", cause: err}
}

// StorageReadFailed wraps a corrupt or unreadable persisted value.
func StorageReadFailed(key string, err error) *Error {
	return &Error{Code: CodeStorageReadFailed, Message: fmt.Sprintf("read %q", key), cause: err}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// IsQuota reports whether err is a quota or rate-limit failure.
func IsQuota(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
