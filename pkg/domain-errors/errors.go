// Package domainerrors provides coded errors for expected domain conditions.
//
// Services return these instead of raw errors so transport layers can map
// them to HTTP statuses without string matching. Infrastructure facts
// (not-found, expired) start as pkg/platform/sentinel errors and are
// translated into coded errors at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an expected failure condition.
type Code string

const (
	CodeBadRequest          Code = "bad_request"
	CodeValidation          Code = "validation_failed"
	CodeUnauthorized        Code = "unauthorized"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeCooldownActive      Code = "cooldown_active"
	CodeSessionExpired      Code = "session_expired"
	CodeStepUnreachable     Code = "step_unreachable"
	CodeVerificationMissing Code = "verification_missing"
	CodeProviderUnavailable Code = "provider_unavailable"
	CodeInvariantViolation  Code = "invariant_violation"
	CodeInternal            Code = "internal_error"
)

// Error carries a machine-readable code alongside a human message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error preserving the underlying cause for errors.Is
// and log output.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unexpected errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
