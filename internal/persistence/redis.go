package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rileyafox/patient-portal/internal/config"
)

// Redis wraps the go-redis client backing the deferred reminder queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided queue configuration.
// Returns a nil-client wrapper when the queue is not configured.
func NewRedis(cfg config.QueueConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled() {
		logger.Warn("QUEUE_ADDR not provided; reminder scheduling disabled")
		return &Redis{Client: nil}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
