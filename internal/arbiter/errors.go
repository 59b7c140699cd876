package arbiter

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error returned by an arbiter provider API.
type APIError struct {
	// Provider is the name of the provider (e.g. "ollama", "openai").
	Provider string
	// StatusCode is the HTTP status code returned by the API.
	// 0 indicates no HTTP response was received.
	StatusCode int
	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient returns true if the error may succeed on retry: rate limiting
// (429), server errors (5xx), and network errors without an HTTP response.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// isTransientError reports whether err is a transient APIError.
func isTransientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsTransient()
}
