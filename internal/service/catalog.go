package service

import (
	"context"
	"sync"
	"time"

	"citasya/internal/domain"
	"citasya/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService caches the per-company service and employee catalogs in
// front of the scheduling backend. Entries expire after a TTL; the refresh
// worker can also force a refetch after mutating actions.
type CatalogService struct {
	backend domain.SchedulingBackend
	logger  *zerolog.Logger
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[string]*catalogEntry
}

type catalogEntry struct {
	services  []models.Service
	employees []models.Employee
	fetchedAt time.Time
}

func NewCatalogService(backend domain.SchedulingBackend, ttl time.Duration, logger *zerolog.Logger) *CatalogService {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultCatalogCacheTTL) * time.Second
	}
	return &CatalogService{
		backend: backend,
		logger:  logger,
		ttl:     ttl,
		entries: make(map[string]*catalogEntry),
	}
}

// Services returns the offerable services for a company. Malformed catalog
// records are dropped, never surfaced.
func (c *CatalogService) Services(ctx context.Context, companyID string) ([]models.Service, error) {
	entry, err := c.entry(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return entry.services, nil
}

// Employees returns the employees able to perform a service. serviceID 0
// returns the full roster.
func (c *CatalogService) Employees(ctx context.Context, companyID string, serviceID int64) ([]models.Employee, error) {
	entry, err := c.entry(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if serviceID == 0 {
		return entry.employees, nil
	}

	var matched []models.Employee
	for _, e := range entry.employees {
		if e.CanPerform(serviceID) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// ServiceByID resolves a single service or returns ErrUnknownService.
func (c *CatalogService) ServiceByID(ctx context.Context, companyID string, serviceID int64) (*models.Service, error) {
	entry, err := c.entry(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, s := range entry.services {
		if s.ID == serviceID {
			svc := s
			return &svc, nil
		}
	}
	return nil, ErrUnknownService
}

// EmployeeByID resolves a single employee or returns ErrUnknownEmployee.
func (c *CatalogService) EmployeeByID(ctx context.Context, companyID string, employeeID int64) (*models.Employee, error) {
	entry, err := c.entry(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for _, e := range entry.employees {
		if e.ID == employeeID {
			emp := e
			return &emp, nil
		}
	}
	return nil, ErrUnknownEmployee
}

// Refresh refetches the catalog regardless of entry age. Used by the refresh
// worker after reservations and cancellations.
func (c *CatalogService) Refresh(ctx context.Context, companyID string) error {
	_, err := c.fetch(ctx, companyID)
	return err
}

// Invalidate drops the cached entry so the next read refetches.
func (c *CatalogService) Invalidate(companyID string) {
	c.mu.Lock()
	delete(c.entries, companyID)
	c.mu.Unlock()
}

func (c *CatalogService) entry(ctx context.Context, companyID string) (*catalogEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[companyID]
	c.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry, nil
	}
	fresh, err := c.fetch(ctx, companyID)
	if err != nil {
		// Serve the stale entry when the refetch fails and one exists.
		if ok {
			if c.logger != nil {
				c.logger.Warn().Err(err).Str("empresa", companyID).Msg("catalog refetch failed, serving stale entry")
			}
			return entry, nil
		}
		return nil, err
	}
	return fresh, nil
}

func (c *CatalogService) fetch(ctx context.Context, companyID string) (*catalogEntry, error) {
	services, err := c.backend.Services(ctx, companyID)
	if err != nil {
		return nil, err
	}
	employees, err := c.backend.Employees(ctx, companyID)
	if err != nil {
		return nil, err
	}

	valid := make([]models.Service, 0, len(services))
	for _, s := range services {
		if !s.Valid() {
			if c.logger != nil {
				c.logger.Debug().Int64("servicio_id", s.ID).Str("nombre", s.Name).Msg("catalog: dropping malformed service")
			}
			continue
		}
		valid = append(valid, s)
	}

	entry := &catalogEntry{services: valid, employees: employees, fetchedAt: time.Now()}
	c.mu.Lock()
	c.entries[companyID] = entry
	c.mu.Unlock()
	return entry, nil
}
