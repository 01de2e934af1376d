// Package apperrors defines the error taxonomy shared by the service layer
// and the HTTP handlers. Handlers map these sentinels to status codes in one
// place instead of inspecting error strings.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request rejected before any state was touched.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a missing or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks an authenticated caller lacking the capability.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation invalid in the record's current state,
	// such as a status transition outside the workflow graph.
	ErrConflict = errors.New("conflict")
)

// Validationf wraps ErrValidation with a caller-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Forbiddenf wraps ErrForbidden with a caller-facing message.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, args...)...)
}

// Conflictf wraps ErrConflict with a caller-facing message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// NotFoundf wraps ErrNotFound with a caller-facing message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}
