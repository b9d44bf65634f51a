package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile       ErrorCategory = "file"
	CategoryParse      ErrorCategory = "parse"
	CategoryDetection  ErrorCategory = "detection"
	CategoryValidation ErrorCategory = "validation"
	CategoryMapping    ErrorCategory = "mapping"
	CategoryStorage    ErrorCategory = "storage"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeEmptyFile     ErrorCode = "empty_file"
	CodeEncodingError ErrorCode = "encoding_error"

	// Detection errors
	CodeWrongPlatform ErrorCode = "wrong_platform"
	CodeInvalidInput  ErrorCode = "invalid_input"

	// Validation errors
	CodeMissingColumn ErrorCode = "missing_column"
	CodeMissingField  ErrorCode = "missing_field"

	// Mapping errors
	CodeMappingConflict ErrorCode = "mapping_conflict"
	CodeEmptyMappingKey ErrorCode = "empty_mapping_key"

	// Storage errors
	CodeWriteFailed  ErrorCode = "write_failed"
	CodeReadFailed   ErrorCode = "read_failed"
	CodeDeleteFailed ErrorCode = "delete_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// AppError is the base error type for all application errors
type AppError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *AppError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryDetection, CategoryValidation:
		return 3
	case CategoryMapping:
		return 4
	case CategoryStorage, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError
func New(category ErrorCategory, code ErrorCode, message string) *AppError {
	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *AppError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
		suggestion = "re-export the statistics file and try again"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *AppError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates a parsing-related error carrying the parser diagnostic
func ParseError(diagnostic string, err error) *AppError {
	message := "could not parse file as delimited tabular data"
	if diagnostic != "" {
		message = fmt.Sprintf("could not parse file: %s", diagnostic)
	}

	var result *AppError
	if err != nil {
		result = Wrap(err, CategoryParse, CodeInvalidFormat, message)
	} else {
		result = New(CategoryParse, CodeInvalidFormat, message)
	}

	return result.
		WithSuggestion("check that the file is a CSV export with a header row").
		WithContext("diagnostic", diagnostic)
}

// EmptyFileError creates an error for structurally valid files with no data rows
func EmptyFileError() *AppError {
	return New(CategoryParse, CodeEmptyFile, "file contains no data rows").
		WithSuggestion("ensure the export contains at least one row below the header")
}

// WrongPlatformError creates an error for files from an unsupported source.
// The platform label and message are user-facing.
func WrongPlatformError(platform, message string) *AppError {
	return New(CategoryDetection, CodeWrongPlatform, message).
		WithSuggestion("export the statistics from a supported source and try again").
		WithContext("platform", platform)
}

// InvalidInputError creates an error for malformed arguments to a pure
// function. This signals a programming-contract violation, not user input.
func InvalidInputError(operation, detail string) *AppError {
	return New(CategoryDetection, CodeInvalidInput,
		fmt.Sprintf("invalid input to %s: %s", operation, detail))
}

// MappingError creates a column-mapping validation error
func MappingError(code ErrorCode, externalName, internalName string) *AppError {
	var message string
	var suggestion string

	switch code {
	case CodeEmptyMappingKey:
		message = "external column name cannot be empty"
		suggestion = "provide the column header exactly as it appears in the export file"
	case CodeMappingConflict:
		message = fmt.Sprintf("column '%s' is already mapped to a different field", externalName)
		suggestion = "remove or change the existing mapping before reassigning this column"
	default:
		message = fmt.Sprintf("mapping error for column '%s'", externalName)
		suggestion = "check the mapping configuration"
	}

	return New(CategoryMapping, code, message).
		WithSuggestion(suggestion).
		WithContext("external_name", externalName).
		WithContext("internal_name", internalName)
}

// StorageWriteError creates an error for a failed persistence write
func StorageWriteError(operation string, err error) *AppError {
	message := fmt.Sprintf("storage write failed during %s", operation)

	var result *AppError
	if err != nil {
		result = Wrap(err, CategoryStorage, CodeWriteFailed, message)
	} else {
		result = New(CategoryStorage, CodeWriteFailed, message)
	}

	return result.
		WithSuggestion("check available disk space and storage permissions").
		WithContext("operation", operation)
}

// StorageReadError creates an error for a failed persistence read. Read
// paths degrade to empty results; this error exists for logging only.
func StorageReadError(operation string, err error) *AppError {
	message := fmt.Sprintf("storage read failed during %s", operation)

	var result *AppError
	if err != nil {
		result = Wrap(err, CategoryStorage, CodeReadFailed, message)
	} else {
		result = New(CategoryStorage, CodeReadFailed, message)
	}

	return result.WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *AppError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *AppError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ValidationResult reports the outcome of a required-column check. Missing
// columns are a soft warning, not an error, so this is a value rather than
// an error type.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Missing []string `json:"missing"`
}

// String returns a human-readable summary of the validation result
func (v ValidationResult) String() string {
	if v.IsValid {
		return "all required columns present"
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(v.Missing, ", "))
}

// Utility functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code
func HasCode(err error, code ErrorCode) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already an AppError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return Wrap(err, category, code, message)
}
