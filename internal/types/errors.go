package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for pipeline errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// Input error codes
const (
	INPUT_NOT_FOUND    ErrorCode = "INPUT_NOT_FOUND"
	INPUT_PARSE_FAILED ErrorCode = "INPUT_PARSE_FAILED"
	INPUT_INVALID      ErrorCode = "INPUT_INVALID"
)

// Storage error codes
const (
	STORE_OPEN_FAILED  ErrorCode = "STORE_OPEN_FAILED"
	STORE_WRITE_FAILED ErrorCode = "STORE_WRITE_FAILED"
	STORE_QUERY_FAILED ErrorCode = "STORE_QUERY_FAILED"
)

// LLM provider error codes
const (
	LLM_PROVIDER_UNKNOWN    ErrorCode = "LLM_PROVIDER_UNKNOWN"
	LLM_CREDENTIALS_MISSING ErrorCode = "LLM_CREDENTIALS_MISSING"
	LLM_INIT_FAILED         ErrorCode = "LLM_INIT_FAILED"
	LLM_CALL_FAILED         ErrorCode = "LLM_CALL_FAILED"
	LLM_RESPONSE_INVALID    ErrorCode = "LLM_RESPONSE_INVALID"
	LLM_RATE_LIMITED        ErrorCode = "LLM_RATE_LIMITED"
)

// Output error codes
const (
	OUTPUT_WRITE_FAILED ErrorCode = "OUTPUT_WRITE_FAILED"
)

// IsRetryable reports whether an error carries the retryable hint.
func IsRetryable(err error) bool {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return false
}

// PipelineError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints.
type PipelineError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *PipelineError) Is(target error) bool {
	var perr *PipelineError
	if errors.As(target, &perr) {
		return e.Code == perr.Code
	}
	return false
}

// NewError creates a new non-retryable PipelineError with the given code and message.
func NewError(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable PipelineError with the given code
// and message. Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryableError creates a retryable PipelineError that wraps an
// existing error. Use this for transient failures, such as provider call
// errors, that may succeed on retry.
func WrapRetryableError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// WrapError creates a new non-retryable PipelineError that wraps an existing
// error. The wrapped error is accessible via Unwrap() for chain inspection.
func WrapError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the ErrorCode from an error, returning an empty code when
// the error is not a PipelineError.
func CodeOf(err error) ErrorCode {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
