package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/partflow/internal/tabular"
)

var (
	// ErrMalformedFile marks catalog files that cannot be read at all.
	ErrMalformedFile = tabular.ErrMalformedFile

	// ErrFileTooLarge is returned when a catalog exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrConflict is returned when a part with the same designation code already exists.
	ErrConflict = errors.New("part already exists")

	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")

	// ErrNoRoute is returned when progress is recorded for a part without a route template.
	ErrNoRoute = errors.New("part has no route")

	// ErrRouteComplete is returned when every step of a part's route is already completed.
	ErrRouteComplete = errors.New("route already completed")

	// ErrTooManyImports is returned when no import slot frees up within the wait time.
	ErrTooManyImports = errors.New("too many imports in progress, please try again later")
)

// ValidationError reports an invalid field in a part creation request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
