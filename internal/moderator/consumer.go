// Package moderator feeds queued items to a human reviewer and routes
// their verdicts to the publication scheduler.
package moderator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newspipe/internal/model"
	"newspipe/internal/queue"
)

// Presenter shows a pending item to the reviewer, typically as a chat
// message with decision buttons.
type Presenter interface {
	Present(ctx context.Context, entry queue.Entry) error
}

// Registrar is the scheduler surface the consumer needs.
type Registrar interface {
	Submit(item model.ProcessedItem, enqueuedAt time.Time)
	HandleDecision(ctx context.Context, d model.Decision)
}

// Consumer polls the moderation queue and presents each entry exactly
// once. Peeking is non-destructive, so a local presented-id set keeps
// repeat polls from spamming the reviewer.
type Consumer struct {
	queue     queue.Queue
	presenter Presenter
	registrar Registrar
	poll      time.Duration
	peekLimit int
	log       *slog.Logger

	mu        sync.Mutex
	presented map[string]time.Time
	retention time.Duration
}

// NewConsumer creates a Consumer polling q on the given interval.
// Presented ids are remembered for retention and then eligible for
// re-presentation, matching the scheduler's residency expiry.
func NewConsumer(q queue.Queue, p Presenter, r Registrar, poll, retention time.Duration, log *slog.Logger) *Consumer {
	return &Consumer{
		queue:     q,
		presenter: p,
		registrar: r,
		poll:      poll,
		peekLimit: 50,
		log:       log,
		presented: make(map[string]time.Time),
		retention: retention,
	}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.pollOnce(ctx)

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

// Decide forwards a reviewer verdict to the scheduler.
func (c *Consumer) Decide(ctx context.Context, d model.Decision) {
	c.registrar.HandleDecision(ctx, d)
}

func (c *Consumer) pollOnce(ctx context.Context) {
	entries, err := c.queue.Peek(ctx, c.peekLimit)
	if err != nil {
		c.log.Error("peek moderation queue", "error", err)
		return
	}

	c.prune()

	for _, e := range entries {
		if !c.markPresented(e.Item.ID) {
			continue
		}
		c.registrar.Submit(e.Item, e.EnqueuedAt)
		if err := c.presenter.Present(ctx, e); err != nil {
			c.log.Error("present item", "id", e.Item.ID, "error", err)
			// Allow a retry on the next poll.
			c.unmark(e.Item.ID)
			continue
		}
		c.log.Debug("item presented", "id", e.Item.ID)
	}
}

// markPresented claims an id. Returns false when already presented.
func (c *Consumer) markPresented(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.presented[id]; ok {
		return false
	}
	c.presented[id] = time.Now()
	return true
}

func (c *Consumer) unmark(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.presented, id)
}

// prune drops presentation records past retention so the set stays
// bounded over long runs.
func (c *Consumer) prune() {
	cutoff := time.Now().Add(-c.retention)
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, at := range c.presented {
		if at.Before(cutoff) {
			delete(c.presented, id)
		}
	}
}
