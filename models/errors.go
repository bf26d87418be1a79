package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError
const (
	CodeValidation = "VALIDATION"
	CodeNotFound   = "NOT_FOUND"
	CodeDecode     = "DECODE"
	CodeTransport  = "TRANSPORT"
	CodeInternal   = "INTERNAL"
)

// AppError is a failure with a machine-readable code and a human-readable message.
// The message is what gets shown to the customer or admin, so keep it specific.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a recoverable validation failure
func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a not found failure
func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewDecodeError wraps an image decode failure
func NewDecodeError(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeDecode, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewTransportError wraps a network failure during submission
func NewTransportError(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeTransport, Message: fmt.Sprintf(format, args...), Err: err}
}

// NewInternalError wraps an unexpected server-side failure
func NewInternalError(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsNotFound reports whether err is a not found failure
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsDecode reports whether err is an image decode failure
func IsDecode(err error) bool { return hasCode(err, CodeDecode) }

// IsTransport reports whether err is a network failure
func IsTransport(err error) bool { return hasCode(err, CodeTransport) }
