package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the services can return.
// Callers match with errors.Is; the HTTP layer maps them to status codes.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPolicy      = errors.New("policy violation")
	ErrReferential = errors.New("referential integrity violation")
	ErrDependency  = errors.New("dependency unavailable")
	ErrInternal    = errors.New("internal error")
)

// ValidationError reports malformed or missing input. It is always detected
// before any database statement runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for the given field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFound wraps ErrNotFound with a resource description.
func NotFound(resource string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, resource, id)
}
