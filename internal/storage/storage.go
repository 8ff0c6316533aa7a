// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"newspipe/internal/model"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("item not found")

// Storage is the interface for the item archive.
type Storage interface {
	SaveItem(ctx context.Context, item model.ProcessedItem) error
	GetItem(ctx context.Context, id string) (*model.ProcessedItem, error)
	MarkPublished(ctx context.Context, id string, messageID int64) error
	ListPublishedSince(ctx context.Context, since time.Time) ([]string, error)

	Close() error
}
