package client

import (
	"errors"
	"fmt"
)

// ValidationError is raised by the client-side guards before any network
// call. The request list and all server state are untouched when one is
// returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// ErrAuthExpired marks a 401. The caller should clear the session and send
// the user back to login; the client does neither itself.
var ErrAuthExpired = errors.New("authentication expired")

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
