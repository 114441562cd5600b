package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citasya/internal/api"
	"citasya/internal/backend"
	"citasya/internal/config"
	"citasya/internal/domain"
	"citasya/internal/events"
	"citasya/internal/logging"
	"citasya/internal/metrics"
	"citasya/internal/models"
	"citasya/internal/repository"
	"citasya/internal/service"
	"citasya/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, store := initSessionStore(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout(), logger)
	catalog := service.NewCatalogService(backendClient, cfg.Engine.CatalogCacheTTL(), logger)

	refreshWorker := worker.NewRefreshWorker(catalog, redisClient, worker.DefaultRetryPolicy(), logger)
	go refreshWorker.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeReservationEvents(ctx, eventBus, refreshWorker, logger)

	locks := service.NewSessionLocks()
	loader := service.NewAvailabilityLoader(backendClient, store, locks, eventBus, logger)
	wizard := service.NewWizard(store, backendClient, catalog, loader, locks, eventBus, logger)
	cancelFlow := service.NewCancelFlow(store, backendClient, eventBus, logger)

	apiServer := api.NewHTTPServer(cfg.API, cfg.Engine, wizard, cancelFlow, catalog, store, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}
	loader.Wait()

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "engine").Logger()
	return cfg, &logger, closer, nil
}

func initSessionStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionStore) {
	ttl := cfg.Engine.SessionTTL()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable")
		}
	}

	primary := repository.NewRedisSessionStore(redisClient, ttl)
	fallback := repository.NewMemorySessionStore(ttl)
	return redisClient, repository.NewFailoverSessionStore(primary, fallback, logger)
}

// subscribeReservationEvents turns confirmed reservations and cancellations
// into catalog refresh tasks.
func subscribeReservationEvents(ctx context.Context, bus *events.EventBus, refreshWorker *worker.RefreshWorker, logger *zerolog.Logger) {
	handler := func(ev *events.Event) error {
		var payload events.ReservationEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		task := models.RefreshTask{
			CompanyID:  payload.CompanyID,
			ServiceID:  payload.ServiceID,
			EmployeeID: payload.EmployeeID,
		}
		if err := refreshWorker.EnqueueRefresh(ctx, task); err != nil {
			logger.Error().Err(err).Str("empresa", payload.CompanyID).Msg("event bus: enqueue refresh")
		}
		return nil
	}

	bus.Subscribe(events.EventReservationConfirmed, handler)
	bus.Subscribe(events.EventReservationCancelled, handler)
}
