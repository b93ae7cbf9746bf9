package errors

import (
	"fmt"
)

// Error is a coded FolioDB error.
type Error struct {
	Code    string // one of the code constants in codes.go
	Message string // primary error message
	Detail  string // optional detailed error message
	Hint    string // optional hint message
	Path    string // file path if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s DETAIL: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a new Error with the given code and message.
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error.
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithPath sets the file path the error refers to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Common error constructors

// NotAccessibleError reports a file that cannot be created or opened.
func NotAccessibleError(path string, cause error) *Error {
	return Newf(NotAccessible, "database file %q is not accessible", path).
		WithDetailf("%v", cause).
		WithPath(path)
}

// InvalidFileStructuref reports a malformed file.
func InvalidFileStructuref(format string, args ...interface{}) *Error {
	return Newf(InvalidFileStructure, format, args...)
}

// InvalidPagef reports a page that failed structural validation.
func InvalidPagef(format string, args ...interface{}) *Error {
	return Newf(InvalidPage, format, args...)
}

// InvalidDocumentf reports a truncated or malformed document.
func InvalidDocumentf(format string, args ...interface{}) *Error {
	return Newf(InvalidDocument, format, args...)
}

// InvalidDocumentReferencef reports a slot offset outside its page.
func InvalidDocumentReferencef(format string, args ...interface{}) *Error {
	return Newf(InvalidDocumentReference, format, args...)
}

// InvalidConfigf reports a configuration value that failed validation.
func InvalidConfigf(format string, args ...interface{}) *Error {
	return Newf(InvalidConfig, format, args...)
}

// DatabaseClosedError reports use of a closed database handle.
func DatabaseClosedError() *Error {
	return New(DatabaseClosed, "database is closed")
}

// CollectionNotFoundError reports a missing collection.
func CollectionNotFoundError(name string) *Error {
	return Newf(CollectionNotFound, "collection %q does not exist", name).
		WithHint("Create it with MakeCollection.")
}

// IsError checks if an error is a FolioDB Error with a specific code.
func IsError(err error, code string) bool {
	if err == nil {
		return false
	}
	fErr, ok := err.(*Error)
	return ok && fErr.Code == code
}

// GetError attempts to extract a FolioDB Error from any error. Generic
// errors are wrapped with an empty code.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if fErr, ok := err.(*Error); ok {
		return fErr
	}
	return &Error{Message: err.Error()}
}
