package domain

import (
	"context"
	"time"

	"citasya/internal/models"
)

// SchedulingBackend is the external system that owns catalogs, availability
// computation and reservations. Specified only at this boundary.
type SchedulingBackend interface {
	Services(ctx context.Context, companyID string) ([]models.Service, error)
	Employees(ctx context.Context, companyID string) ([]models.Employee, error)
	Availability(ctx context.Context, companyID string, serviceID, employeeID int64) ([]models.FeedDay, error)
	Reserve(ctx context.Context, companyID string, draft models.BookingDraft) (*models.Reservation, error)
	LookupReservation(ctx context.Context, companyID, reservationID, cedula string) (*models.Reservation, error)
	CancelReservation(ctx context.Context, companyID, reservationID, cedula string) error
}

// SessionStore persists per-flow state. Each state object has exactly one
// active owner, so the store needs no cross-key coordination.
type SessionStore interface {
	GetWizard(ctx context.Context, sessionID string) (*models.WizardState, error)
	SetWizard(ctx context.Context, state *models.WizardState) error
	ClearWizard(ctx context.Context, sessionID string) error

	GetCancel(ctx context.Context, key string) (*models.CancelState, error)
	SetCancel(ctx context.Context, key string, state *models.CancelState) error
	ClearCancel(ctx context.Context, key string) error

	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher publishes domain events to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AvailabilityRefresher starts an availability fetch for the state's current
// filter. Implementations run asynchronously; a result arriving after the
// filter changed again is discarded (last-filter-wins).
type AvailabilityRefresher interface {
	Trigger(ctx context.Context, state *models.WizardState)
}

// RefreshQueue accepts catalog refresh commands issued after mutating actions.
type RefreshQueue interface {
	EnqueueRefresh(ctx context.Context, task models.RefreshTask) error
}

// CatalogProvider serves the cached service/employee catalog.
type CatalogProvider interface {
	Services(ctx context.Context, companyID string) ([]models.Service, error)
	Employees(ctx context.Context, companyID string, serviceID int64) ([]models.Employee, error)
	ServiceByID(ctx context.Context, companyID string, serviceID int64) (*models.Service, error)
	EmployeeByID(ctx context.Context, companyID string, employeeID int64) (*models.Employee, error)
}
