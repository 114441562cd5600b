package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"citasya/internal/models"
	"citasya/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLoaderFixture() (*AvailabilityLoader, *repository.MemorySessionStore, *mockBackend) {
	logger := zerolog.Nop()
	mb := &mockBackend{}
	store := repository.NewMemorySessionStore(time.Hour)
	return NewAvailabilityLoader(mb, store, NewSessionLocks(), nil, &logger), store, mb
}

func TestLoaderAppliesFreshResult(t *testing.T) {
	loader, store, mb := newLoaderFixture()
	ctx := context.Background()

	state := models.NewWizardState("s1", testCompany)
	state.Draft.SetService(1)
	state.AvailabilitySeq = 1
	require.NoError(t, store.SetWizard(ctx, state))

	mb.On("Availability", mock.Anything, testCompany, int64(1), int64(0)).Return(testFeed(), nil)

	loader.Trigger(ctx, state)
	loader.Wait()

	got, err := store.GetWizard(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Feed, 2)
	assert.False(t, got.FetchFailed)
}

func TestLoaderDiscardsStaleResult(t *testing.T) {
	loader, store, mb := newLoaderFixture()
	ctx := context.Background()

	state := models.NewWizardState("s1", testCompany)
	state.Draft.SetService(1)
	state.AvailabilitySeq = 1
	require.NoError(t, store.SetWizard(ctx, state))

	fetchStarted := make(chan struct{})
	release := make(chan struct{})
	mb.On("Availability", mock.Anything, testCompany, int64(1), int64(0)).
		Run(func(args mock.Arguments) {
			close(fetchStarted)
			<-release
		}).
		Return(testFeed(), nil)

	snapshot := *state
	loader.Trigger(ctx, &snapshot)
	<-fetchStarted

	// The filter changes while the fetch is in flight.
	state.AvailabilitySeq = 2
	require.NoError(t, store.SetWizard(ctx, state))

	close(release)
	loader.Wait()

	got, err := store.GetWizard(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got.Feed, "stale result must not overwrite the newer filter's state")
	assert.Equal(t, int64(2), got.AvailabilitySeq)
}

func TestLoaderRecordsFetchFailure(t *testing.T) {
	loader, store, mb := newLoaderFixture()
	ctx := context.Background()

	state := models.NewWizardState("s1", testCompany)
	state.Draft.SetService(1)
	state.AvailabilitySeq = 1
	require.NoError(t, store.SetWizard(ctx, state))

	mb.On("Availability", mock.Anything, testCompany, int64(1), int64(0)).
		Return(nil, errors.New("backend down"))

	loader.Trigger(ctx, state)
	loader.Wait()

	got, err := store.GetWizard(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.FetchFailed)
	assert.Empty(t, got.Feed)
}

func TestLoaderPreservesConcurrentWizardWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logger := zerolog.Nop()
	mb := &mockBackend{}
	store := repository.NewRedisSessionStore(client, time.Hour)
	locks := NewSessionLocks()
	loader := NewAvailabilityLoader(mb, store, locks, nil, &logger)
	ctx := context.Background()

	state := models.NewWizardState("s1", testCompany)
	state.Draft.SetService(1)
	state.AvailabilitySeq = 1
	require.NoError(t, store.SetWizard(ctx, state))

	fetched := make(chan struct{})
	mb.On("Availability", mock.Anything, testCompany, int64(1), int64(0)).
		Run(func(args mock.Arguments) { close(fetched) }).
		Return(testFeed(), nil)

	// Hold the session lock so the fetch result cannot land yet, then write
	// a draft change the way a wizard action would.
	mu := locks.Lock("s1")
	loader.Trigger(ctx, state)
	<-fetched

	state.Draft.SetDate("2025-06-10")
	require.NoError(t, store.SetWizard(ctx, state))
	mu.Unlock()

	loader.Wait()

	got, err := store.GetWizard(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", got.Draft.Date, "fetch result must not clobber the draft change")
	assert.Len(t, got.Feed, 2)
}

func TestLoaderSessionGone(t *testing.T) {
	loader, _, mb := newLoaderFixture()
	ctx := context.Background()

	state := models.NewWizardState("ghost", testCompany)
	state.Draft.SetService(1)
	mb.On("Availability", mock.Anything, testCompany, int64(1), int64(0)).Return(testFeed(), nil)

	// Never stored; the result has nowhere to land and is dropped.
	loader.Trigger(ctx, state)
	loader.Wait()
}
