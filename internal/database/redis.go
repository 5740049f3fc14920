package database

import (
	"context"
	"fmt"
	"time"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/redis/go-redis/v9"
)

// Redis wraps the Redis client
type Redis struct {
	*redis.Client
}

// NewRedis creates a new Redis connection
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     100,
		MinIdleConns: 10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

// HealthCheck verifies the Redis connection is healthy
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx).Err()
}

// Increment bumps a fixed-window counter. The window starts with the first
// hit; the returned duration is the time left before the counter resets.
func (r *Redis) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := r.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	if count == 1 {
		if err := r.Expire(ctx, key, window).Err(); err != nil {
			return count, window, fmt.Errorf("failed to set expiry on %s: %w", key, err)
		}
		return count, window, nil
	}

	ttl, err := r.TTL(ctx, key).Result()
	if err != nil {
		return count, 0, fmt.Errorf("failed to read ttl of %s: %w", key, err)
	}
	if ttl < 0 {
		// Lost the expiry (crash between INCR and EXPIRE); re-arm it.
		r.Expire(ctx, key, window)
		ttl = window
	}
	return count, ttl, nil
}
