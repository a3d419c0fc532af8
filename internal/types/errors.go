// Package types holds the small set of types shared by every citymap package:
// the error taxonomy and the zip-code identifier.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Packages MUST use these constants instead of hardcoded strings.
const (
	// Load (fatal at construction)
	ErrCodeLoadFileMissing       ErrorCode = "load_file_missing"
	ErrCodeLoadMalformed         ErrorCode = "load_malformed"
	ErrCodeLoadUnsupportedGeom   ErrorCode = "load_unsupported_geometry"
	ErrCodeLoadInvalidZip        ErrorCode = "load_invalid_zip"
	ErrCodeLoadEmpty             ErrorCode = "load_empty"
	ErrCodeLoadUnsupportedFormat ErrorCode = "load_unsupported_format"

	// Range (caller error)
	ErrCodeRangeFrame ErrorCode = "range_frame_out_of_bounds"

	// Lookup (caller error)
	ErrCodeLookupDate ErrorCode = "lookup_date_out_of_range"

	// Configuration
	ErrCodeConfigInvalidDomain  ErrorCode = "config_invalid_domain"
	ErrCodeConfigUnknownPalette ErrorCode = "config_unknown_palette"
	ErrCodeConfigInvalidColor   ErrorCode = "config_invalid_color"
	ErrCodeConfigInvalidOption  ErrorCode = "config_invalid_option"

	// Render
	ErrCodeRenderSink   ErrorCode = "render_sink_failure"
	ErrCodeRenderFrame  ErrorCode = "render_frame_failure"
	ErrCodeRenderOutput ErrorCode = "render_unsupported_output"

	// Internal
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// Process exit codes used by the command line tools.
const (
	ExitOK       = 0
	ExitInternal = 1
	ExitUsage    = 2
	ExitLoad     = 3
	ExitRender   = 4
)

// ExitCode maps an ErrorCode to the process exit status a CLI should use.
// Returns ExitInternal for unrecognized error codes as a safe default.
func (c ErrorCode) ExitCode() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "load_"):
		return ExitLoad
	case strings.HasPrefix(s, "range_"),
		strings.HasPrefix(s, "lookup_"),
		strings.HasPrefix(s, "config_"):
		return ExitUsage
	case strings.HasPrefix(s, "render_"):
		return ExitRender
	default:
		return ExitInternal
	}
}

// AppError is the standard application error type used throughout citymap.
// LoadError, RangeError and LookupError are all AppErrors distinguished by
// the prefix of their Code.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status corresponding to this error's code.
func (e *AppError) ExitCode() int {
	return e.Code.ExitCode()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewLoadError reports a boundary or series file that is missing or malformed.
func NewLoadError(code ErrorCode, path string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf("cannot load %s", path),
		Err:     err,
		Details: map[string]any{"path": path},
	}
}

// NewRangeError reports a frame index outside [0, frames).
func NewRangeError(index, frames int) *AppError {
	return &AppError{
		Code:    ErrCodeRangeFrame,
		Message: fmt.Sprintf("frame %d outside [0, %d)", index, frames),
		Details: map[string]any{"index": index, "frames": frames},
	}
}

// NewLookupError reports a date outside the observed range of a series.
func NewLookupError(date, first, last string) *AppError {
	return &AppError{
		Code:    ErrCodeLookupDate,
		Message: fmt.Sprintf("date %s outside series range %s..%s", date, first, last),
		Details: map[string]any{"date": date, "first": first, "last": last},
	}
}

// CodeOf extracts the ErrorCode of the first AppError in err's chain.
// Returns ErrCodeInternalUnexpected if the chain holds no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}

func hasPrefix(err error, prefix string) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(CodeOf(err)), prefix)
}

// IsLoadError reports whether err is (or wraps) a LoadError.
func IsLoadError(err error) bool { return hasPrefix(err, "load_") }

// IsRangeError reports whether err is (or wraps) a RangeError.
func IsRangeError(err error) bool { return hasPrefix(err, "range_") }

// IsLookupError reports whether err is (or wraps) a LookupError.
func IsLookupError(err error) bool { return hasPrefix(err, "lookup_") }
