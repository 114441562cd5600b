package service

import (
	"context"
	"strings"

	"citasya/internal/domain"
	"citasya/internal/events"
	"citasya/internal/metrics"
	"citasya/internal/models"

	"github.com/rs/zerolog"
)

// CancelFlow drives the two-step cancellation: a lookup that verifies
// ownership and shows a read-only snapshot, then an explicit confirmation.
// The destructive call always carries the credentials posted by the customer,
// never data from the snapshot.
type CancelFlow struct {
	store   domain.SessionStore
	backend domain.SchedulingBackend
	bus     domain.EventPublisher
	logger  *zerolog.Logger
}

func NewCancelFlow(store domain.SessionStore, schedBackend domain.SchedulingBackend, bus domain.EventPublisher, logger *zerolog.Logger) *CancelFlow {
	return &CancelFlow{store: store, backend: schedBackend, bus: bus, logger: logger}
}

func cancelKey(companyID, reservationID string) string {
	return companyID + ":" + reservationID
}

// Lookup verifies the reservation id and cedula against the backend and, on a
// match, parks the flow at the review step. Every failure mode collapses into
// ErrReservationLookup so the endpoint cannot be used to probe which
// reservation ids exist.
func (f *CancelFlow) Lookup(ctx context.Context, companyID, reservationID, cedula string) (*models.Reservation, error) {
	reservationID = strings.TrimSpace(reservationID)
	cedula = strings.TrimSpace(cedula)
	if reservationID == "" || cedula == "" {
		return nil, ErrReservationLookup
	}

	reservation, err := f.backend.LookupReservation(ctx, companyID, reservationID, cedula)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug().Err(err).Str("empresa", companyID).Msg("cancel lookup rejected")
		}
		metrics.IncCancellation("lookup_failed")
		return nil, ErrReservationLookup
	}
	if reservation.Status == models.StatusCancelled {
		metrics.IncCancellation("lookup_failed")
		return nil, ErrReservationLookup
	}

	state := &models.CancelState{
		CompanyID: companyID,
		Step:      models.StepReviewAndConfirm,
		Request:   models.CancellationRequest{ReservationID: reservationID, Cedula: cedula},
		Snapshot:  reservation,
	}
	if err := f.store.SetCancel(ctx, cancelKey(companyID, reservationID), state); err != nil {
		return nil, err
	}
	return reservation, nil
}

// Review returns the parked review state, if any.
func (f *CancelFlow) Review(ctx context.Context, companyID, reservationID string) (*models.CancelState, error) {
	state, err := f.store.GetCancel(ctx, cancelKey(companyID, reservationID))
	if err != nil {
		return nil, err
	}
	if state == nil || state.Step != models.StepReviewAndConfirm {
		return nil, ErrNoPendingCancellation
	}
	return state, nil
}

// Confirm performs the cancellation. The cedula posted with the confirmation
// must match the one verified at lookup; the backend re-checks it anyway.
func (f *CancelFlow) Confirm(ctx context.Context, companyID, reservationID, cedula string) error {
	key := cancelKey(companyID, reservationID)

	state, err := f.store.GetCancel(ctx, key)
	if err != nil {
		return err
	}
	if state == nil || state.Step != models.StepReviewAndConfirm {
		return ErrNoPendingCancellation
	}
	if strings.TrimSpace(cedula) != state.Request.Cedula {
		return ErrReservationLookup
	}

	if err := f.backend.CancelReservation(ctx, companyID, reservationID, cedula); err != nil {
		// The flow stays at review; the customer can retry or go back.
		metrics.IncCancellation("rejected")
		if f.logger != nil {
			f.logger.Warn().Err(err).Str("empresa", companyID).Str("reservation_id", reservationID).Msg("cancel rejected by backend")
		}
		return err
	}

	if err := f.store.ClearCancel(ctx, key); err != nil && f.logger != nil {
		f.logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("clearing cancel state failed")
	}

	metrics.IncCancellation("ok")
	if f.bus != nil {
		_ = f.bus.PublishJSON(events.EventReservationCancelled, events.ReservationEventPayload{
			CompanyID:     companyID,
			ReservationID: reservationID,
		})
	}
	if f.logger != nil {
		f.logger.Info().Str("empresa", companyID).Str("reservation_id", reservationID).Msg("reservation cancelled")
	}
	return nil
}

// Back abandons the review and returns the flow to the lookup step.
func (f *CancelFlow) Back(ctx context.Context, companyID, reservationID string) error {
	return f.store.ClearCancel(ctx, cancelKey(companyID, reservationID))
}
