package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for CanvasFlow errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Snapshot database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
	SNAPSHOT_NOT_FOUND  ErrorCode = "SNAPSHOT_NOT_FOUND"
)

// Label store error codes
const (
	LABEL_NOT_FOUND      ErrorCode = "LABEL_NOT_FOUND"
	LABEL_CONFLICT       ErrorCode = "LABEL_CONFLICT"
	UPLOAD_UNSUPPORTED   ErrorCode = "UPLOAD_UNSUPPORTED"
	DELETE_NOT_REQUESTED ErrorCode = "DELETE_NOT_REQUESTED"
)

// Node store error codes
const (
	NODE_NOT_FOUND     ErrorCode = "NODE_NOT_FOUND"
	NODE_INVALID       ErrorCode = "NODE_INVALID"
	TOOL_TYPE_UNKNOWN  ErrorCode = "TOOL_TYPE_UNKNOWN"
	CONNECTION_INVALID ErrorCode = "CONNECTION_INVALID"
)

// Execution error codes
const (
	EXECUTION_IN_PROGRESS ErrorCode = "EXECUTION_IN_PROGRESS"
	EXECUTION_FAILED      ErrorCode = "EXECUTION_FAILED"
	CONTENT_NOT_FOUND     ErrorCode = "CONTENT_NOT_FOUND"
)

// Tracing error codes
const (
	TRACING_INIT_FAILED     ErrorCode = "TRACING_INIT_FAILED"
	TRACING_SHUTDOWN_FAILED ErrorCode = "TRACING_SHUTDOWN_FAILED"
)

// Canvas document error codes
const (
	CANVAS_PARSE_FAILED    ErrorCode = "CANVAS_PARSE_FAILED"
	CANVAS_ENCODE_FAILED   ErrorCode = "CANVAS_ENCODE_FAILED"
	CANVAS_IMPORT_CONFLICT ErrorCode = "CANVAS_IMPORT_CONFLICT"
)

// CanvasError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type CanvasError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *CanvasError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *CanvasError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is a CanvasError with the same Code.
func (e *CanvasError) Is(target error) bool {
	var canvasErr *CanvasError
	if errors.As(target, &canvasErr) {
		return e.Code == canvasErr.Code
	}
	return false
}

// NewError creates a new non-retryable CanvasError with the given code and message.
func NewError(code ErrorCode, message string) *CanvasError {
	return &CanvasError{
		Code:    code,
		Message: message,
	}
}

// NewErrorf creates a new non-retryable CanvasError with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *CanvasError {
	return &CanvasError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates a new non-retryable CanvasError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *CanvasError {
	return &CanvasError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err carries the given error code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var canvasErr *CanvasError
	if errors.As(err, &canvasErr) {
		return canvasErr.Code == code
	}
	return false
}
