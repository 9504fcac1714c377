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
	// ErrInvalidInput covers missing/unreadable files, unsupported
	// extensions and other caller mistakes. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput marks an extraction attempt on blank OCR text.
	ErrEmptyInput = errors.New("empty input text")

	// ErrBackendUnavailable signals that the live generation backend could
	// not be constructed or probed; the orchestrator substitutes the
	// simulation backend exactly once at construction.
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrInternal = errors.New("internal error")
)

// NewAppError builds an AppError around a code, message and cause.
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
