// Package errs defines the error kinds returned by the assignment engine.
// Callers match them with errors.Is; messages carry the offending IDs.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrCapacityExceeded     = errors.New("attendant capacity exceeded")
	ErrAttendantUnavailable = errors.New("attendant unavailable")
	// ErrNoAttendantAvailable means the request was valid but no attendant can take it now
	ErrNoAttendantAvailable = errors.New("no attendant available")
)

// HTTPStatus maps an engine error to a response status code
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrAttendantUnavailable),
		errors.Is(err, ErrNoAttendantAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
