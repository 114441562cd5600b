package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"citasya/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogDropsMalformedServices(t *testing.T) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	mb.On("Services", mock.Anything, testCompany).Return([]models.Service{
		{ID: 1, Name: "Corte", DurationMinutes: 30, Price: 10},
		{ID: 2, Name: "Raro", DurationMinutes: 45, Price: 10},  // not a 30-minute step
		{ID: 3, Name: "", DurationMinutes: 30, Price: 10},      // no name
		{ID: 4, Name: "Largo", DurationMinutes: 390, Price: 5}, // over the cap
	}, nil)
	mb.On("Employees", mock.Anything, testCompany).Return([]models.Employee{}, nil)

	catalog := NewCatalogService(mb, time.Hour, &logger)
	services, err := catalog.Services(context.Background(), testCompany)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Corte", services[0].Name)
}

func TestCatalogEmployeesFilteredByService(t *testing.T) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	testCatalogFixtures(mb)

	catalog := NewCatalogService(mb, time.Hour, &logger)
	ctx := context.Background()

	all, err := catalog.Employees(ctx, testCompany, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forCorte, err := catalog.Employees(ctx, testCompany, 1)
	require.NoError(t, err)
	require.Len(t, forCorte, 1)
	assert.Equal(t, "Ana", forCorte[0].Name)
}

func TestCatalogCachesWithinTTL(t *testing.T) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	mb.On("Services", mock.Anything, testCompany).Return([]models.Service{
		{ID: 1, Name: "Corte", DurationMinutes: 30, Price: 10},
	}, nil).Once()
	mb.On("Employees", mock.Anything, testCompany).Return([]models.Employee{}, nil).Once()

	catalog := NewCatalogService(mb, time.Hour, &logger)
	ctx := context.Background()

	_, err := catalog.Services(ctx, testCompany)
	require.NoError(t, err)
	_, err = catalog.Services(ctx, testCompany)
	require.NoError(t, err)

	mb.AssertNumberOfCalls(t, "Services", 1)
}

func TestCatalogServesStaleOnRefetchFailure(t *testing.T) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	mb.On("Services", mock.Anything, testCompany).Return([]models.Service{
		{ID: 1, Name: "Corte", DurationMinutes: 30, Price: 10},
	}, nil).Once()
	mb.On("Employees", mock.Anything, testCompany).Return([]models.Employee{}, nil).Once()
	mb.On("Services", mock.Anything, testCompany).Return(nil, errors.New("backend down"))

	catalog := NewCatalogService(mb, time.Nanosecond, &logger)
	ctx := context.Background()

	first, err := catalog.Services(ctx, testCompany)
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(time.Millisecond)

	stale, err := catalog.Services(ctx, testCompany)
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestCatalogRefreshForcesFetch(t *testing.T) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	mb.On("Services", mock.Anything, testCompany).Return([]models.Service{
		{ID: 1, Name: "Corte", DurationMinutes: 30, Price: 10},
	}, nil)
	mb.On("Employees", mock.Anything, testCompany).Return([]models.Employee{}, nil)

	catalog := NewCatalogService(mb, time.Hour, &logger)
	ctx := context.Background()

	_, err := catalog.Services(ctx, testCompany)
	require.NoError(t, err)
	require.NoError(t, catalog.Refresh(ctx, testCompany))

	mb.AssertNumberOfCalls(t, "Services", 2)
}

func TestCatalogByIDLookups(t *testing.T) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	testCatalogFixtures(mb)

	catalog := NewCatalogService(mb, time.Hour, &logger)
	ctx := context.Background()

	svc, err := catalog.ServiceByID(ctx, testCompany, 1)
	require.NoError(t, err)
	assert.Equal(t, "Corte", svc.Name)

	_, err = catalog.ServiceByID(ctx, testCompany, 99)
	assert.ErrorIs(t, err, ErrUnknownService)

	emp, err := catalog.EmployeeByID(ctx, testCompany, 20)
	require.NoError(t, err)
	assert.Equal(t, "Luis", emp.Name)

	_, err = catalog.EmployeeByID(ctx, testCompany, 99)
	assert.ErrorIs(t, err, ErrUnknownEmployee)
}
