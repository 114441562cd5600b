package repository

import (
	"context"
	"sync/atomic"
	"time"

	"citasya/internal/domain"
	"citasya/internal/models"

	"github.com/rs/zerolog"
)

// FailoverSessionStore serves from the primary store and falls back to the
// secondary when the primary errors, probing for recovery once a minute.
type FailoverSessionStore struct {
	primary   domain.SessionStore
	fallback  domain.SessionStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverSessionStore(primary, fallback domain.SessionStore, logger *zerolog.Logger) *FailoverSessionStore {
	return &FailoverSessionStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session store failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverSessionStore) GetWizard(ctx context.Context, sessionID string) (*models.WizardState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetWizard(ctx, sessionID)
		if err == nil {
			return state, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		state, err := r.primary.GetWizard(ctx, sessionID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetWizard(ctx, sessionID)
}

func (r *FailoverSessionStore) SetWizard(ctx context.Context, state *models.WizardState) error {
	if !r.isDown.Load() {
		err := r.primary.SetWizard(ctx, state)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetWizard(ctx, state)
}

func (r *FailoverSessionStore) ClearWizard(ctx context.Context, sessionID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearWizard(ctx, sessionID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearWizard(ctx, sessionID)
}

func (r *FailoverSessionStore) GetCancel(ctx context.Context, key string) (*models.CancelState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetCancel(ctx, key)
		if err == nil {
			return state, nil
		}
		r.markDown(err)
	}

	return r.fallback.GetCancel(ctx, key)
}

func (r *FailoverSessionStore) SetCancel(ctx context.Context, key string, state *models.CancelState) error {
	if !r.isDown.Load() {
		err := r.primary.SetCancel(ctx, key, state)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetCancel(ctx, key, state)
}

func (r *FailoverSessionStore) ClearCancel(ctx context.Context, key string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearCancel(ctx, key)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearCancel(ctx, key)
}

func (r *FailoverSessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
