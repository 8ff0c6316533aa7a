package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspipe/internal/model"
)

// Resilient wraps a shared queue with a bounded in-memory buffer.
// While the shared store is unavailable, new entries are held in the
// buffer instead of being dropped; once the buffer fills, Enqueue
// returns ErrFull and intake pauses. A background loop drains the
// buffer back into the shared store when it recovers.
type Resilient struct {
	primary Queue
	buffer  *Memory
	log     *slog.Logger
}

var _ Queue = (*Resilient)(nil)

// NewResilient wraps primary with a buffer of the given capacity.
func NewResilient(primary Queue, capacity int, log *slog.Logger) *Resilient {
	return &Resilient{
		primary: primary,
		buffer:  NewMemory(capacity),
		log:     log,
	}
}

// Enqueue tries the shared store first and falls back to the buffer.
func (r *Resilient) Enqueue(ctx context.Context, item model.ProcessedItem) error {
	if err := r.primary.Enqueue(ctx, item); err != nil {
		r.log.Warn("shared queue unavailable, buffering", "id", item.ID, "error", err)
		if bufErr := r.buffer.Enqueue(ctx, item); bufErr != nil {
			return fmt.Errorf("buffer item %s: %w", item.ID, bufErr)
		}
	}
	return nil
}

// Peek reads from the shared store.
func (r *Resilient) Peek(ctx context.Context, limit int) ([]Entry, error) {
	return r.primary.Peek(ctx, limit)
}

// Remove removes from the shared store.
func (r *Resilient) Remove(ctx context.Context, id string) error {
	return r.primary.Remove(ctx, id)
}

// Len reports the shared store length plus any buffered entries.
func (r *Resilient) Len(ctx context.Context) (int, error) {
	n, err := r.primary.Len(ctx)
	if err != nil {
		return 0, err
	}
	buffered, _ := r.buffer.Len(ctx)
	return n + buffered, nil
}

// Buffered returns the number of entries waiting for the shared store
// to recover.
func (r *Resilient) Buffered() int {
	n, _ := r.buffer.Len(context.Background())
	return n
}

// Flush moves buffered entries into the shared store. Entries that
// still cannot be written are re-buffered in order.
func (r *Resilient) Flush(ctx context.Context) error {
	for {
		batch := r.buffer.Drain(16)
		if len(batch) == 0 {
			return nil
		}
		for i, e := range batch {
			if err := r.primary.Enqueue(ctx, e.Item); err != nil {
				r.buffer.Restore(batch[i:])
				return fmt.Errorf("flush buffered entries: %w", err)
			}
		}
	}
}

// Run periodically flushes the buffer until ctx is cancelled.
func (r *Resilient) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.Buffered() == 0 {
				continue
			}
			if err := r.Flush(ctx); err != nil {
				r.log.Warn("flush buffered queue entries", "error", err)
			} else {
				r.log.Info("buffered queue entries flushed")
			}
		}
	}
}
