// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the request is inconsistent with stored data.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrGone indicates the resource existed but is no longer usable.
	ErrGone = errors.New("gone")

	// ErrTooManyRequests indicates the caller exceeded a rate limit.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrInternal indicates a server-side failure such as misconfiguration or corrupt data.
	ErrInternal = errors.New("internal error")
)

// CodedError is a domain error carrying a stable machine-readable code.
// It unwraps to both its Kind (one of the sentinels above) and the
// optional underlying cause.
type CodedError struct {
	Code    string
	Kind    error
	Message string
	Details map[string]any
	Err     error
}

// NewCoded creates a CodedError of the given kind.
func NewCoded(kind error, code, message string) *CodedError {
	return &CodedError{Code: code, Kind: kind, Message: message}
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = e.Code + ": " + e.Message
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind and the cause to errors.Is / errors.As.
func (e *CodedError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Is matches another CodedError by code so package-level values can be
// compared against copies returned by WithCause / WithDetails.
func (e *CodedError) Is(target error) bool {
	var other *CodedError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// WithCause returns a copy of e wrapping cause.
func (e *CodedError) WithCause(cause error) *CodedError {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithDetails returns a copy of e carrying details for the response envelope.
func (e *CodedError) WithDetails(details map[string]any) *CodedError {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
