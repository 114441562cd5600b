package service

import (
	"context"
	"sync"
	"time"

	"citasya/internal/domain"
	"citasya/internal/events"
	"citasya/internal/metrics"
	"citasya/internal/models"

	"github.com/rs/zerolog"
)

const fetchTimeout = 30 * time.Second

// AvailabilityLoader fetches the availability feed for a wizard session in the
// background. Each filter change bumps the state's AvailabilitySeq before a
// fetch is triggered; when the fetch lands it is applied only if the stored
// sequence still matches, so a slower response for an older filter can never
// overwrite a newer one.
type AvailabilityLoader struct {
	backend domain.SchedulingBackend
	store   domain.SessionStore
	locks   *SessionLocks
	bus     domain.EventPublisher
	logger  *zerolog.Logger

	wg sync.WaitGroup
}

func NewAvailabilityLoader(backend domain.SchedulingBackend, store domain.SessionStore, locks *SessionLocks, bus domain.EventPublisher, logger *zerolog.Logger) *AvailabilityLoader {
	return &AvailabilityLoader{backend: backend, store: store, locks: locks, bus: bus, logger: logger}
}

// Trigger starts an asynchronous fetch for the state's current filter. The
// caller must have persisted the state (with its bumped sequence) already.
func (l *AvailabilityLoader) Trigger(ctx context.Context, state *models.WizardState) {
	sessionID := state.SessionID
	companyID := state.CompanyID
	serviceID := state.Draft.ServiceID
	employeeID := state.Draft.EmployeeID
	seq := state.AvailabilitySeq

	// The fetch outlives the request that triggered it.
	fetchCtx := context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.fetch(fetchCtx, sessionID, companyID, serviceID, employeeID, seq)
	}()
}

// Wait blocks until all in-flight fetches finish. Shutdown and tests only.
func (l *AvailabilityLoader) Wait() {
	l.wg.Wait()
}

func (l *AvailabilityLoader) fetch(ctx context.Context, sessionID, companyID string, serviceID, employeeID, seq int64) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	feed, fetchErr := l.backend.Availability(ctx, companyID, serviceID, employeeID)

	// Re-read under the session lock so the write cannot clobber a wizard
	// action that landed while the fetch was in flight.
	defer l.locks.Lock(sessionID).Unlock()

	state, err := l.store.GetWizard(ctx, sessionID)
	if err != nil || state == nil {
		if l.logger != nil {
			l.logger.Debug().Err(err).Str("session_id", sessionID).Msg("availability: session gone before fetch landed")
		}
		return
	}

	if state.AvailabilitySeq != seq {
		metrics.IncStaleDiscard()
		if l.bus != nil {
			_ = l.bus.PublishJSON(events.EventAvailabilityDropped, events.ReservationEventPayload{
				CompanyID: companyID,
				ServiceID: serviceID,
			})
		}
		if l.logger != nil {
			l.logger.Debug().
				Str("session_id", sessionID).
				Int64("fetched_seq", seq).
				Int64("current_seq", state.AvailabilitySeq).
				Msg("availability: discarding stale fetch result")
		}
		return
	}

	if fetchErr != nil {
		metrics.IncAvailabilityFetch("error")
		state.Feed = nil
		state.FetchFailed = true
		if l.logger != nil {
			l.logger.Warn().Err(fetchErr).Str("session_id", sessionID).Msg("availability fetch failed")
		}
	} else {
		metrics.IncAvailabilityFetch("ok")
		state.Feed = feed
		state.FetchFailed = false
	}

	if err := l.store.SetWizard(ctx, state); err != nil && l.logger != nil {
		l.logger.Error().Err(err).Str("session_id", sessionID).Msg("availability: persisting fetch result failed")
	}
}
