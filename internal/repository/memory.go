package repository

import (
	"context"
	"sync"
	"time"

	"citasya/internal/models"
)

type MemorySessionStore struct {
	wizards    sync.Map
	cancels    sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl: ttl,
	}
}

func (r *MemorySessionStore) GetWizard(ctx context.Context, sessionID string) (*models.WizardState, error) {
	val, ok := r.wizards.Load(sessionID)
	if !ok {
		return nil, nil
	}
	return val.(*models.WizardState), nil
}

func (r *MemorySessionStore) SetWizard(ctx context.Context, state *models.WizardState) error {
	r.wizards.Store(state.SessionID, state)
	return nil
}

func (r *MemorySessionStore) ClearWizard(ctx context.Context, sessionID string) error {
	r.wizards.Delete(sessionID)
	return nil
}

func (r *MemorySessionStore) GetCancel(ctx context.Context, key string) (*models.CancelState, error) {
	val, ok := r.cancels.Load(key)
	if !ok {
		return nil, nil
	}
	return val.(*models.CancelState), nil
}

func (r *MemorySessionStore) SetCancel(ctx context.Context, key string, state *models.CancelState) error {
	r.cancels.Store(key, state)
	return nil
}

func (r *MemorySessionStore) ClearCancel(ctx context.Context, key string) error {
	r.cancels.Delete(key)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
