package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenKeyPrefix = "newspipe:seen:"

// RedisSeen is a SeenStore on Redis. Each fingerprint is a key with a
// TTL, so the horizon is enforced by Redis expiry.
type RedisSeen struct {
	client *redis.Client
}

// NewRedisSeen wraps an existing Redis client.
func NewRedisSeen(client *redis.Client) *RedisSeen {
	return &RedisSeen{client: client}
}

// Remember sets the fingerprint key if absent. SetNX makes the check
// and the write atomic, so concurrent workers racing on the same story
// see exactly one fresh result.
func (r *RedisSeen) Remember(ctx context.Context, fp string, ttl time.Duration) (bool, error) {
	fresh, err := r.client.SetNX(ctx, seenKeyPrefix+fp, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx fingerprint: %w", err)
	}
	return fresh, nil
}

// Forget deletes the fingerprint key. Deleting an absent key is a no-op.
func (r *RedisSeen) Forget(ctx context.Context, fp string) error {
	if err := r.client.Del(ctx, seenKeyPrefix+fp).Err(); err != nil {
		return fmt.Errorf("del fingerprint: %w", err)
	}
	return nil
}
