package core

import (
	"errors"
	"fmt"
)

// Error kinds classify core failures so callers can map them to transport
// responses without string matching. Every core operation returns either a
// typed result or one of these, wrapped with context via %w.
var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrAuthorization  = errors.New("not owned by caller")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyDeleted = errors.New("already deleted")
)

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf builds a NotFoundError with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Forbiddenf builds an AuthorizationError with a formatted message.
func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrAuthorization}, args...)...)
}

// Conflictf builds a ConflictError with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
