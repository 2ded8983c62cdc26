package api

import (
	"fmt"
)

// Error is the normalized failure for every gateway operation. Status is
// the HTTP status code, or 0 when the server could not be reached at all.
type Error struct {
	Status  int
	Message string
	// Body is the raw response body, kept for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// IsNetwork reports whether the failure was transport-level, i.e. the
// server was never reached.
func (e *Error) IsNetwork() bool {
	return e.Status == 0
}
