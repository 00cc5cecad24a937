package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/firegrid/firegrid-engine/pkg/config"
	"github.com/firegrid/firegrid-engine/pkg/retry"
)

// NewRedisClient connects to the configured Redis server.
// Returns nil, nil when Redis is not configured so callers can fall back to memory.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ping := func() error { return client.Ping(ctx).Err() }
	if err := retry.DoIfRetryable(ctx, retry.StartupConfig(), ping); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	return client, nil
}
