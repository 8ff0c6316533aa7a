package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newspipe/internal/model"
)

const (
	listKey = "newspipe:moderation"
	idsKey  = "newspipe:moderation:ids"
)

// Redis implements Queue on a Redis list with a side set of present
// ids. The set makes Enqueue idempotent; list and set are always
// updated in one transaction so readers never observe a partial entry.
type Redis struct {
	client *redis.Client
}

var _ Queue = (*Redis)(nil)

// NewRedis wraps an existing Redis client and verifies the connection.
func NewRedis(ctx context.Context, client *redis.Client) (*Redis, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client}, nil
}

// enqueueScript adds the entry only when the id is not already in the
// side set. Running as a script keeps the membership check and the
// push atomic under concurrent enqueuers.
var enqueueScript = redis.NewScript(`
if redis.call("SADD", KEYS[2], ARGV[1]) == 1 then
	redis.call("RPUSH", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// Enqueue appends the item unless its id is already present.
func (r *Redis) Enqueue(ctx context.Context, item model.ProcessedItem) error {
	entry := Entry{Item: item, EnqueuedAt: time.Now().UTC()}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	if err := enqueueScript.Run(ctx, r.client, []string{listKey, idsKey}, item.ID, payload).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", item.ID, err)
	}
	return nil
}

// Peek returns up to limit entries in arrival order without consuming
// them. Entries that fail to decode are skipped.
func (r *Redis) Peek(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, listKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, payload := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Remove deletes the entry with the given id from the list and the
// side set.
func (r *Redis) Remove(ctx context.Context, id string) error {
	raw, err := r.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("lrange: %w", err)
	}

	for _, payload := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			continue
		}
		if e.Item.ID != id {
			continue
		}
		pipe := r.client.TxPipeline()
		pipe.LRem(ctx, listKey, 1, payload)
		pipe.SRem(ctx, idsKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		return nil
	}
	// Absent ids are a no-op so Remove is idempotent.
	return nil
}

// Len returns the number of entries currently queued.
func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("llen: %w", err)
	}
	return int(n), nil
}

// Ping reports whether the backing store is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
