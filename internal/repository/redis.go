package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"citasya/internal/config"
	"citasya/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisSessionStore) GetWizard(ctx context.Context, sessionID string) (*models.WizardState, error) {
	var state models.WizardState
	found, err := r.getJSON(ctx, wizardKey(sessionID), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *RedisSessionStore) SetWizard(ctx context.Context, state *models.WizardState) error {
	return r.setJSON(ctx, wizardKey(state.SessionID), state)
}

func (r *RedisSessionStore) ClearWizard(ctx context.Context, sessionID string) error {
	return r.del(ctx, wizardKey(sessionID))
}

func (r *RedisSessionStore) GetCancel(ctx context.Context, key string) (*models.CancelState, error) {
	var state models.CancelState
	found, err := r.getJSON(ctx, cancelKey(key), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *RedisSessionStore) SetCancel(ctx context.Context, key string, state *models.CancelState) error {
	return r.setJSON(ctx, cancelKey(key), state)
}

func (r *RedisSessionStore) ClearCancel(ctx context.Context, key string) error {
	return r.del(ctx, cancelKey(key))
}

func (r *RedisSessionStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rateKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, rateKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rateKey, window)
	}

	return count <= int64(limit), nil
}

func (r *RedisSessionStore) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get state from redis: %w", err)
	}

	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return true, nil
}

func (r *RedisSessionStore) setJSON(ctx context.Context, key string, state interface{}) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set state in redis: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) del(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete state from redis: %w", err)
	}
	return nil
}

func wizardKey(sessionID string) string {
	return fmt.Sprintf("wizard_state:%s", sessionID)
}

func cancelKey(key string) string {
	return fmt.Sprintf("cancel_state:%s", key)
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection if present.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
