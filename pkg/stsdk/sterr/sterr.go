package sterr

import (
	"errors"
	"fmt"
)

// Code represents a stable error category that callers can switch on.
type Code string

const (
	CodeUnknown            Code = "unknown"
	CodeUnauthorized       Code = "unauthorized"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeValidation         Code = "validation"
	CodeDuplicateIdentity  Code = "duplicate_identity"
	CodeNetwork            Code = "network"
	CodeTimeout            Code = "timeout"
	CodeExpiredToken       Code = "expired_token"
	CodeRefreshFailed      Code = "refresh_failed"
)

// Error carries a Code plus the underlying error. Validation errors also
// carry the server's per-field messages.
type Error struct {
	Code   Code
	Fields map[string][]string
	err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// New wraps an error with the provided code. If err is nil a nil is returned.
func New(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, err: err}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, err: fmt.Errorf(format, args...)}
}

// WithFields wraps err with code and field-level messages.
func WithFields(code Code, err error, fields map[string][]string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Fields: fields, err: err}
}

// IsCode reports whether any error in err's chain is an *Error with code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// FieldsOf returns the field messages of the first *Error in err's chain.
func FieldsOf(err error) map[string][]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
