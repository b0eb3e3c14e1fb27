package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared by the pipeline, the
// session store and the API modules.
type ErrorCode string

const (
	ErrCodeValidation     ErrorCode = "VALIDATION"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeServer         ErrorCode = "SERVER"
	ErrCodeNetwork        ErrorCode = "NETWORK"
	ErrCodeResponseFormat ErrorCode = "RESPONSE_FORMAT"
	ErrCodeRejected       ErrorCode = "REJECTED"
	ErrCodeUnknown        ErrorCode = "UNKNOWN"
)

// Error is a classified failure with a ready-to-display message. Response is
// the transport response that produced it, when one was received.
type Error struct {
	Code     ErrorCode
	Message  string
	Response *RawResponse
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusCode returns the HTTP status of the attached response or 0.
func (e *Error) StatusCode() int {
	if e == nil || e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// WithMessage returns a copy of the error carrying a different display message.
func (e *Error) WithMessage(message string) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Message = message
	return &clone
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrIncompleteLogin  = NewError(ErrCodeValidation, "登录信息不完整")
	ErrCredentialExpiry = NewError(ErrCodeUnauthorized, "Token无效或已过期")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// AsError extracts the classified error from a chain.
func AsError(err error) (*Error, bool) {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr, true
	}
	return nil, false
}

// DisplayMessage returns the user-facing message for any error.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	if dErr, ok := AsError(err); ok && dErr.Message != "" {
		return dErr.Message
	}
	return err.Error()
}
