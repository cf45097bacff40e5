package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidState  = errors.New("invalid state for operation")
	ErrCancelled     = errors.New("job was cancelled")
	ErrQueueFull     = errors.New("queue is full")
	ErrShuttingDown  = errors.New("shutting down")
	ErrTooLarge      = errors.New("payload too large")
	ErrInternal      = errors.New("internal error")
	ErrDatabase      = errors.New("database error")
	ErrValidation    = errors.New("validation failed")
)

// Error codes carried by AppError.Code.
const (
	CodeConfig      = "CONFIG_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeState       = "INVALID_STATE"
	CodeInput       = "INVALID_INPUT"
	CodeJobFailed   = "JOB_FAILED"
	CodePageFailure = "PAGE_FAILURE"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NotFoundErrorf(format string, args ...any) error {
	return NewAppError(CodeNotFound, fmt.Sprintf(format, args...), ErrNotFound)
}

func InvalidStateErrorf(format string, args ...any) error {
	return NewAppError(CodeState, fmt.Sprintf(format, args...), ErrInvalidState)
}

func InvalidInputErrorf(format string, args ...any) error {
	return NewAppError(CodeInput, fmt.Sprintf(format, args...), ErrInvalidInput)
}

// JobFailure marks an error that moved a job to ERROR. The message is what
// polling clients see.
func JobFailure(message string, cause error) error {
	return NewAppError(CodeJobFailed, message, cause)
}

// FailureMessage returns the client-facing message for a job failure.
func FailureMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeJobFailed {
		return appErr.Message
	}
	return err.Error()
}
