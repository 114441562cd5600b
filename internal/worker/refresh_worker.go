package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"citasya/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CatalogRefresher refetches a company's catalog into the cache.
type CatalogRefresher interface {
	Refresh(ctx context.Context, companyID string) error
}

// RefreshWorker consumes catalog refresh tasks issued after reservations and
// cancellations. Redis carries the queue when available so tasks survive a
// restart; an in-memory channel is the fallback. The flow state machines are
// never touched by a refresh.
type RefreshWorker struct {
	catalog       CatalogRefresher
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.RefreshTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
}

// NewRefreshWorker builds a worker with sane defaults. redisClient may be nil.
func NewRefreshWorker(catalog CatalogRefresher, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *RefreshWorker {
	defaults := DefaultRetryPolicy()
	if retry.MaxRetries == 0 {
		retry.MaxRetries = defaults.MaxRetries
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = defaults.InitialDelay
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = defaults.MaxDelay
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = defaults.BackoffFactor
	}

	return &RefreshWorker{
		catalog:       catalog,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.RefreshTask, models.RefreshQueueSize),
		redisQueueKey: "catalog:refresh",
		deadLetterKey: "catalog:refresh:deadletter",
		pollInterval:  2 * time.Second,
		logger:        logger,
	}
}

// EnqueueRefresh schedules a refresh via redis or the in-memory queue.
func (w *RefreshWorker) EnqueueRefresh(ctx context.Context, task models.RefreshTask) error {
	if task.CompanyID == "" {
		return errors.New("company id is required")
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			if w.logger != nil {
				w.logger.Warn().Err(err).Msg("refresh_worker: redis push failed, fallback to memory queue")
			}
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		if w.logger != nil {
			w.logger.Warn().Str("empresa", task.CompanyID).Msg("refresh_worker: queue full, task dropped")
		}
	}
	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *RefreshWorker) Start(ctx context.Context) {
	if w.logger != nil {
		w.logger.Info().Msg("refresh_worker: started")
		defer w.logger.Info().Msg("refresh_worker: stopped")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *RefreshWorker) tryLocalQueue() (models.RefreshTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.RefreshTask{}, false
	}
}

func (w *RefreshWorker) tryRedis(ctx context.Context) (models.RefreshTask, bool) {
	if w.redis == nil {
		return models.RefreshTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.RefreshTask{}, false
		}
		if w.logger != nil {
			w.logger.Warn().Err(err).Msg("refresh_worker: redis BRPOP error")
		}
		return models.RefreshTask{}, false
	}
	if len(res) != 2 {
		return models.RefreshTask{}, false
	}
	var task models.RefreshTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		if w.logger != nil {
			w.logger.Warn().Err(err).Msg("refresh_worker: decode redis task")
		}
		return models.RefreshTask{}, false
	}
	return task, true
}

func (w *RefreshWorker) processTask(ctx context.Context, task models.RefreshTask) {
	err := w.catalog.Refresh(ctx, task.CompanyID)
	if err == nil {
		if w.logger != nil {
			w.logger.Debug().Str("empresa", task.CompanyID).Msg("refresh_worker: catalog refreshed")
		}
		return
	}
	w.retryOrFail(ctx, task, err)
}

func (w *RefreshWorker) retryOrFail(ctx context.Context, task models.RefreshTask, cause error) {
	task.RetryCount++
	if w.retryPolicy.Exhausted(task.RetryCount) {
		if w.logger != nil {
			w.logger.Error().Err(cause).Str("empresa", task.CompanyID).Int("retries", task.RetryCount).Msg("refresh_worker: giving up on task")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	if w.logger != nil {
		w.logger.Warn().Err(cause).Str("empresa", task.CompanyID).Dur("delay", delay).Msg("refresh_worker: task failed, will retry")
	}

	retask := task
	time.AfterFunc(delay, func() {
		select {
		case w.queue <- retask:
		default:
		}
	})
}

func (w *RefreshWorker) pushRedis(ctx context.Context, task models.RefreshTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *RefreshWorker) pushDeadLetter(ctx context.Context, task models.RefreshTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil && w.logger != nil {
		w.logger.Warn().Err(err).Msg("refresh_worker: deadletter push failed")
	}
}
