package common

import (
	"errors"
	"fmt"
)

// Code classifies application errors for the transport boundary.
type Code string

const (
	// CodeInvalidInput covers oversize files, unsupported extensions and
	// undecodable payloads. Recovered locally, never a crash.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeDocumentParse is a malformed document the PDF capability rejects.
	CodeDocumentParse Code = "DOCUMENT_PARSE"
	// CodeEmptyDocument is a zero-page PDF where a page is required.
	CodeEmptyDocument Code = "EMPTY_DOCUMENT"
	// CodeModelUnavailable means a required capability is not loaded; callers
	// should treat the service as not ready for that operation.
	CodeModelUnavailable Code = "MODEL_UNAVAILABLE"
	// CodeUnsupportedModel is a load request for an unknown model name.
	CodeUnsupportedModel Code = "UNSUPPORTED_MODEL"
	// CodeNoFace means detection ran successfully but found no face.
	CodeNoFace Code = "NO_FACE"
	// CodeTransientItem is a recoverable per-item failure inside a larger
	// unit of work; the caller may skip the item and continue.
	CodeTransientItem Code = "TRANSIENT_ITEM"
	// CodeEngineFatal is an irrecoverable failure of an underlying engine.
	CodeEngineFatal Code = "ENGINE_FATAL"
)

// AppError represents application-specific errors
type AppError struct {
	Code    Code
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

func NewAppError(code Code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func Errorf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or "" when err carries no code.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Message returns the message of an AppError without its cause chain,
// falling back to err.Error() for plain errors.
func Message(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
