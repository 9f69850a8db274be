// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown errors
//   - Validation errors (100-199): Bad requests, invalid parameters and timeframes
//   - Data errors (200-299): Missing or empty series, duplicate bars, corrupt cache rows
//   - Strategy errors (400-499): Unknown strategies and registration failures
//   - Store errors (700-799): Price store and cache store connectivity failures
//
// Every code belongs to exactly one outward ResponseCode (BAD_REQUEST, NOT_FOUND,
// NO_DATA, FETCH_ERROR), which is what the evaluation envelope reports.
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInvalidParameter, "fast must be within [%v, %v]", lo, hi)
//
//	if errors.HasCode(err, errors.ErrCodeNoData) { ... }
//
//	code := errors.ResponseCodeFor(err) // "BAD_REQUEST"
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode of the outermost *Error in the chain.
// Returns ErrCodeUnknown if the chain holds no *Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// ResponseCodeFor returns the envelope code for err.
// A deadline anywhere in the chain is reported as a transient fetch failure.
func ResponseCodeFor(err error) ResponseCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return ResponseFetchError
	}

	return ResponseCodeOf(GetCode(err))
}

// FromContext classifies a store error, turning deadline expiry into ErrCodeStoreTimeout
// and anything else into the given fallback code.
func FromContext(err error, fallback ErrorCode, message string) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrCodeStoreTimeout, message, err)
	}

	return Wrap(fallback, message, err)
}
