// Package throttle holds short cooldown locks, used to rate limit OTP
// issuance per principal.
package throttle

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Throttle interface {
	// Acquire takes key for ttl. It reports false while the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const keyPrefix = "otp:cooldown:"

// Key is the cooldown key of a principal.
func Key(subject string) string {
	return keyPrefix + subject
}

type RedisThrottle struct {
	client *redis.Client
}

func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

func (t *RedisThrottle) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return t.client.SetNX(ctx, key, 1, ttl).Result()
}

func (t *RedisThrottle) Release(ctx context.Context, key string) error {
	return t.client.Del(ctx, key).Err()
}

// Nop never throttles.
type Nop struct{}

func (Nop) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (Nop) Release(context.Context, string) error                         { return nil }
