package backend

import (
	"errors"
	"fmt"
)

// APIError is a rejection from the scheduling backend carrying the
// server-provided message from its {"error": ...} body. The flows surface
// Message verbatim when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message)
}

// ClientRejection reports whether the backend rejected the request itself
// (validation failure, slot taken, not found) as opposed to failing.
func (e *APIError) ClientRejection() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// AsAPIError unwraps err into an APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
