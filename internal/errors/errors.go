package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a site error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"         // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"               // 404
	ErrSuperseded     ErrorCode = "SUPERSEDED"              // 409
	ErrCanceled       ErrorCode = "CANCELED"                // 499
	ErrInternal       ErrorCode = "INTERNAL"                // 500
	ErrTransientFetch ErrorCode = "TRANSIENT_FETCH_FAILURE" // 503
	ErrTimeout        ErrorCode = "TIMEOUT"                 // 504
)

// SiteError represents a structured error with code, status, and details.
type SiteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SiteError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SiteError {
	return &SiteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an identifier that resolves to no record.
func NewNotFound(kind, identifier string) *SiteError {
	return &SiteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewSuperseded creates a 409 error for a navigation replaced by a newer one
// before its result could be applied.
func NewSuperseded(path string) *SiteError {
	return &SiteError{
		Code:    ErrSuperseded,
		Status:  409,
		Message: fmt.Sprintf("navigation to %s superseded", path),
		Details: map[string]any{"path": path},
	}
}

// NewTransientFetch creates a 503 error for a rejected storage or network call.
func NewTransientFetch(op string, err error) *SiteError {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &SiteError{
		Code:    ErrTransientFetch,
		Status:  503,
		Message: msg,
		Details: map[string]any{"op": op},
		cause:   err,
	}
}

// NewTimeout creates a 504 error when a caller-supplied deadline expires.
func NewTimeout(op string, err error) *SiteError {
	return &SiteError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("%s timed out", op),
		Details: map[string]any{"op": op},
		cause:   err,
	}
}

// NewCanceled creates a 499 error for a caller that gave up before the
// operation finished.
func NewCanceled(op string, err error) *SiteError {
	return &SiteError{
		Code:    ErrCanceled,
		Status:  499,
		Message: fmt.Sprintf("%s canceled", op),
		Details: map[string]any{"op": op},
		cause:   err,
	}
}

// FromContext classifies a context error: an expired deadline is TIMEOUT,
// anything else CANCELED.
func FromContext(op string, err error) *SiteError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(op, err)
	}
	return NewCanceled(op, err)
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SiteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SiteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a SiteError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SiteError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As is stderrors.As, re-exported so callers importing this package
// under the name "errors" keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
