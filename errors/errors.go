package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the status used when the error is rendered by the admin handler.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code, so that
// errors.Is(err, errors.New(code, ...)) matches on the taxonomy alone.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// InvalidArgument creates an error for a nil or unusable argument.
func InvalidArgument(arg, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid %s: %s", arg, reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"argument": arg},
	}
}

// AlreadyDisposed creates an error for an operation on a torn-down resource.
func AlreadyDisposed(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyDisposed, Message: fmt.Sprintf("%s has already been disposed", resource),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"resource": resource},
	}
}

// DeactivationFailed wraps a failure raised while releasing one instance.
func DeactivationFailed(instance any, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDeactivationFailed, Message: fmt.Sprintf("failed to deactivate %T", instance),
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
		Details: map[string]any{"instance_type": fmt.Sprintf("%T", instance)},
	}
}

// NotFound creates an error for an unknown key.
func NotFound(resource, key string) *AppError {
	details := map[string]any{"resource": resource}
	if key != "" {
		details["key"] = key
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// HasCode reports whether err, or any error it wraps, is an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
