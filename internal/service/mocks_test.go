package service

import (
	"context"

	"citasya/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Services(ctx context.Context, companyID string) ([]models.Service, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Service), args.Error(1)
}

func (m *mockBackend) Employees(ctx context.Context, companyID string) ([]models.Employee, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Employee), args.Error(1)
}

func (m *mockBackend) Availability(ctx context.Context, companyID string, serviceID, employeeID int64) ([]models.FeedDay, error) {
	args := m.Called(ctx, companyID, serviceID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FeedDay), args.Error(1)
}

func (m *mockBackend) Reserve(ctx context.Context, companyID string, draft models.BookingDraft) (*models.Reservation, error) {
	args := m.Called(ctx, companyID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockBackend) LookupReservation(ctx context.Context, companyID, reservationID, cedula string) (*models.Reservation, error) {
	args := m.Called(ctx, companyID, reservationID, cedula)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockBackend) CancelReservation(ctx context.Context, companyID, reservationID, cedula string) error {
	args := m.Called(ctx, companyID, reservationID, cedula)
	return args.Error(0)
}
