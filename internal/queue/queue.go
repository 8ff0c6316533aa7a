// Package queue implements the moderation queue shared between the
// processing side and the publication side.
package queue

import (
	"context"
	"time"

	"newspipe/internal/model"
)

// Entry wraps a processed item with its enqueue timestamp.
type Entry struct {
	Item       model.ProcessedItem `json:"item"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

// Queue is the shared ordered collection of items awaiting a
// publication decision. Enqueue is idempotent by item id: re-adding an
// id already present is a no-op. Peek is non-destructive; entries
// leave the queue only through Remove. All operations are safe under
// concurrent callers.
type Queue interface {
	Enqueue(ctx context.Context, item model.ProcessedItem) error
	Peek(ctx context.Context, limit int) ([]Entry, error)
	Remove(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}
