package service

import "errors"

// Flow errors surfaced to the API layer. Handlers map them onto HTTP status
// codes; messages are safe to show to the customer.
var (
	ErrSessionNotFound  = errors.New("session not found or expired")
	ErrSessionCompleted = errors.New("session already completed")

	ErrInvalidTransition = errors.New("action not allowed at the current step")
	ErrServiceRequired   = errors.New("a service must be selected first")
	ErrSlotRequired      = errors.New("a date and time must be selected first")
	ErrDetailsRequired   = errors.New("all customer details are required")
	ErrIncompleteDraft   = errors.New("the reservation draft is incomplete")

	ErrUnknownService  = errors.New("unknown service")
	ErrUnknownEmployee = errors.New("unknown employee for this service")
	ErrSlotUnavailable = errors.New("the selected slot is no longer available")

	ErrSubmitInFlight = errors.New("a submission is already in progress")

	// ErrReservationLookup deliberately carries no detail: wrong id, wrong
	// cedula and already-cancelled all collapse into the same message so the
	// flow cannot be used to probe which reservation ids exist.
	ErrReservationLookup = errors.New("no reservation matches those details")

	ErrNoPendingCancellation = errors.New("no cancellation pending for this reservation")

	ErrRateLimited = errors.New("too many actions, slow down")
)
