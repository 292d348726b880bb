package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter shares fixed windows across instances via INCR with an
// expiry set when the window opens.
type RedisCounter struct {
	client *redis.Client
	window time.Duration
	prefix string
}

func NewRedisCounter(client *redis.Client, window time.Duration, prefix string) *RedisCounter {
	return &RedisCounter{client: client, window: window, prefix: prefix}
}

func (r *RedisCounter) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *RedisCounter) Increment(ctx context.Context, key string) (int, error) {
	k := r.key(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	// First hit in the window opens it.
	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set counter expiry: %w", err)
		}
	}
	return int(count), nil
}

func (r *RedisCounter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset counter: %w", err)
	}
	return nil
}
