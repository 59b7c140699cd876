package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrArbiterUnavailable indicates the delegated arbiter could not be
	// reached or kept returning malformed responses after bounded retries.
	// The arbitration engine resolves it to a conservative nil choice;
	// it is never fatal to a run.
	ErrArbiterUnavailable = errors.New("arbiter unavailable")

	// ErrCatalogUnavailable indicates an external catalog query failed.
	// The affected record's match result is marked indeterminate.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrMalformedCandidate indicates a candidate with an inconsistent
	// shape (e.g. negative page count). Such candidates are rejected by
	// the validator and excluded from arbitration.
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates that a request was rate limited.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}
