// Package errors provides structured error types for vizpage.
//
// Every failure surfaced by the report builder carries a machine-readable
// [Code] so callers can branch on the category (a duplicate dataset name, an
// unknown format, a filesystem failure) without parsing messages.
//
// # Error Codes
//
// Codes fall into a few groups:
//   - INVALID_*: caller input that can never succeed
//   - DUPLICATE_* and MIXED_FORMAT: conflicts between otherwise valid inputs
//   - UNKNOWN_* and UNSUPPORTED_*: references to things that do not exist
//   - IO_ERROR and INTERNAL_ERROR: the environment failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateName, "dataset %q already registered", name)
//	if errors.Is(err, errors.ErrCodeDuplicateName) {
//	    // Handle conflict
//	}
//
//	// Wrap filesystem failures, keeping the cause for errors.Is(err, fs.ErrPermission)
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidChart    Code = "INVALID_CHART"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Conflicts
	ErrCodeDuplicateName     Code = "DUPLICATE_NAME"
	ErrCodeDuplicateFilename Code = "DUPLICATE_FILENAME"
	ErrCodeMixedFormat       Code = "MIXED_FORMAT"

	// Unresolved references
	ErrCodeUnknownDataset    Code = "UNKNOWN_DATASET"
	ErrCodeUnknownPage       Code = "UNKNOWN_PAGE"
	ErrCodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	ErrCodeFileNotFound      Code = "FILE_NOT_FOUND"

	// Environment errors
	ErrCodeIO       Code = "IO_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain carries the given code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}
