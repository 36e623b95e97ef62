package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Caller errors, surfaced synchronously by the violating operation.
const (
	// ErrCodeInvalidArgument indicates a nil or non-identity binding or scope.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeAlreadyDisposed indicates a mutating call on a disposed cache.
	ErrCodeAlreadyDisposed ErrorCode = "ALREADY_DISPOSED"
	// ErrCodeNotFound indicates a lookup key that is not registered.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Release errors, isolated per entry and reported rather than propagated.
const (
	// ErrCodeDeactivationFailed indicates the deactivation pipeline failed for one instance.
	ErrCodeDeactivationFailed ErrorCode = "DEACTIVATION_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
