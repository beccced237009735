package letters

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCooldown tracks recent submissions in Redis with a TTL equal to the
// cooldown window, sparing the letter store a lookup for back-to-back spam.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

var _ CooldownCache = (*RedisCooldown)(nil)

// NewRedisCooldown wraps a Redis client as a cooldown cache.
func NewRedisCooldown(client *redis.Client, prefix string) *RedisCooldown {
	if prefix == "" {
		prefix = "worry:cooldown:"
	}
	return &RedisCooldown{client: client, prefix: prefix}
}

// Seen reports whether the identifier submitted within the TTL window.
func (c *RedisCooldown) Seen(ctx context.Context, anonID string) (bool, error) {
	err := c.client.Get(ctx, c.prefix+anonID).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Mark records a submission for the TTL window.
func (c *RedisCooldown) Mark(ctx context.Context, anonID string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+anonID, "1", ttl).Err()
}
