package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an application error.
type ErrorCode string

const (
	// General errors
	ErrCodeInternal  ErrorCode = "INTERNAL_ERROR"
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	ErrCodeNotFound  ErrorCode = "NOT_FOUND"

	// Record store errors
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// Orchestration errors
	ErrCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrCodeAlreadyRunning     ErrorCode = "ALREADY_RUNNING"
	ErrCodeInstanceNotFound   ErrorCode = "INSTANCE_NOT_FOUND"
)

// AppError is a typed application error carrying a code and an
// optional cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches two AppErrors by code, so sentinel AppErrors work with
// errors.Is regardless of message or cause.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Code extracts the ErrorCode from err, or ErrCodeInternal when err is
// not an AppError.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
