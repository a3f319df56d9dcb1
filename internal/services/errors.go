// Package services defines the business logic for ingesting and reading
// webhook messages. This file centralizes service-level error values and
// the webhook outcome labels shared with the HTTP and metrics layers.
//
// Translation into HTTP status codes is performed at the handler layer.
package services

import "errors"

// Pagination errors. Handlers reject these before calling the service; the
// service repeats the check so a misbehaving caller never reaches storage.
var (
	// ErrInvalidLimit is returned when limit is outside [MinLimit, MaxLimit].
	ErrInvalidLimit = errors.New("limit must be 1..100")

	// ErrInvalidOffset is returned when offset is negative.
	ErrInvalidOffset = errors.New("offset must be >= 0")
)

// Webhook outcome labels. Persistence failures use ErrorOutcome.
const (
	OutcomeCreated          = "created"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeValidationError  = "validation_error"
)

// ErrorOutcome builds the outcome label for a persistence failure.
func ErrorOutcome(err error) string { return "error: " + err.Error() }
