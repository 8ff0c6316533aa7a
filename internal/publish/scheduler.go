// Package publish orders, throttles, and releases approved items to
// the output channel with an at-most-once guarantee.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"newspipe/internal/model"
	"newspipe/internal/queue"
	"newspipe/internal/stats"
)

// Outcome is the result of a TryPublishNext call.
type Outcome string

// TryPublishNext outcomes.
const (
	OutcomePublished   Outcome = "published"
	OutcomeRateLimited Outcome = "rate-limited"
	OutcomeEmpty       Outcome = "empty"
)

// Sink is the single output channel.
type Sink interface {
	Publish(ctx context.Context, text string) (messageID int64, err error)
}

// Archive is the storage surface the scheduler needs.
type Archive interface {
	MarkPublished(ctx context.Context, id string, messageID int64) error
	ListPublishedSince(ctx context.Context, since time.Time) ([]string, error)
}

type candidateState int

const (
	statePending candidateState = iota
	stateApproved
)

type candidate struct {
	item       model.ProcessedItem
	enqueuedAt time.Time
	state      candidateState
	inflight   bool
}

// Scheduler owns the publication side: ordering, the sliding-window
// rate limit, the at-most-once publish flag, and queue/storage
// bookkeeping after a release. All state transitions happen under one
// mutex; the mutex is never held across the sink's network call.
type Scheduler struct {
	mu         sync.Mutex
	candidates map[string]*candidate
	terminal   map[string]bool // rejected, expired, or published ids

	window    *Window
	sink      Sink
	archive   Archive
	queue     queue.Queue
	stats     *stats.Stats
	residency time.Duration
	tick      time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a Scheduler publishing through sink at most
// maxPerHour times per rolling hour.
func NewScheduler(sink Sink, archive Archive, q queue.Queue, st *stats.Stats, maxPerHour int, residency, tick time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		candidates: make(map[string]*candidate),
		terminal:   make(map[string]bool),
		window:     NewWindow(maxPerHour, time.Hour),
		sink:       sink,
		archive:    archive,
		queue:      q,
		stats:      st,
		residency:  residency,
		tick:       tick,
		log:        log,
		now:        time.Now,
	}
}

// Submit registers an item awaiting a moderation decision. Re-submitting
// a known or already-decided id is a no-op.
func (s *Scheduler) Submit(item model.ProcessedItem, enqueuedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal[item.ID] {
		return
	}
	if _, ok := s.candidates[item.ID]; ok {
		return
	}
	s.candidates[item.ID] = &candidate{item: item, enqueuedAt: enqueuedAt}
}

// HandleDecision applies a moderation verdict. Duplicate or late
// decisions are no-ops: terminal states absorb everything.
func (s *Scheduler) HandleDecision(ctx context.Context, d model.Decision) {
	s.mu.Lock()
	c, ok := s.candidates[d.ID]
	if !ok || s.terminal[d.ID] {
		s.mu.Unlock()
		return
	}

	switch d.Verdict {
	case model.VerdictApprove:
		c.state = stateApproved
		s.mu.Unlock()
	case model.VerdictReject:
		delete(s.candidates, d.ID)
		s.terminal[d.ID] = true
		s.mu.Unlock()
		if err := s.queue.Remove(ctx, d.ID); err != nil {
			s.log.Error("remove rejected item from queue", "id", d.ID, "error", err)
		}
		s.log.Info("item rejected", "id", d.ID)
	case model.VerdictDefer:
		// Stays pending; the residency clock keeps running.
		s.mu.Unlock()
	default:
		s.mu.Unlock()
	}
}

// TryPublishNext releases the best eligible item: highest importance
// first, oldest published-at on ties. Safe under concurrent callers
// (a timer tick racing a manual publish command): the candidate is
// claimed under the mutex before the network call, so at most one
// caller releases a given item.
func (s *Scheduler) TryPublishNext(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	c := s.pickLocked()
	if c == nil {
		s.mu.Unlock()
		return OutcomeEmpty, nil
	}

	slot, ok := s.window.Reserve()
	if !ok {
		s.mu.Unlock()
		return OutcomeRateLimited, nil
	}
	c.inflight = true
	item := c.item
	s.mu.Unlock()

	messageID, err := s.sink.Publish(ctx, item.Formatted)

	s.mu.Lock()
	c.inflight = false
	if err != nil {
		// Flag stays unset; the item remains eligible for the next tick.
		s.window.Release(slot)
		s.mu.Unlock()
		s.stats.PublishFailure()
		return OutcomeEmpty, fmt.Errorf("publish %s: %w", item.ID, err)
	}

	delete(s.candidates, item.ID)
	s.terminal[item.ID] = true
	s.mu.Unlock()

	s.stats.Published()
	s.log.Info("item published", "id", item.ID, "message_id", messageID, "importance", item.Importance)

	// The channel accepted the item: bookkeeping failures below are
	// logged for reconciliation, never retried as a re-publish.
	if err := s.archive.MarkPublished(ctx, item.ID, messageID); err != nil {
		s.log.Error("mark published, reconciliation required", "id", item.ID, "error", err)
	}
	if err := s.queue.Remove(ctx, item.ID); err != nil {
		s.log.Error("remove published item from queue, reconciliation required", "id", item.ID, "error", err)
	}

	return OutcomePublished, nil
}

// pickLocked returns the best approved candidate not already claimed.
func (s *Scheduler) pickLocked() *candidate {
	eligible := make([]*candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if c.state == stateApproved && !c.inflight {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].item.Importance != eligible[j].item.Importance {
			return eligible[i].item.Importance > eligible[j].item.Importance
		}
		return eligible[i].item.PublishedAt.Before(eligible[j].item.PublishedAt)
	})
	return eligible[0]
}

// SweepExpired turns undecided candidates older than the residency
// window into terminal expired items and purges them from the queue.
func (s *Scheduler) SweepExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.residency)

	s.mu.Lock()
	var expired []string
	for id, c := range s.candidates {
		if c.state == statePending && !c.enqueuedAt.IsZero() && c.enqueuedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.candidates, id)
		s.terminal[id] = true
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.queue.Remove(ctx, id); err != nil {
			s.log.Error("remove expired item from queue", "id", id, "error", err)
		}
		s.log.Info("item expired without decision", "id", id)
	}
}

const sweepPeekLimit = 1000

// Reconcile compares storage published records against queue residue
// and purges entries whose item was already released. Heals the
// divergence left by bookkeeping failures after a successful publish.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	published, err := s.archive.ListPublishedSince(ctx, s.now().Add(-2*s.residency))
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}
	if len(published) == 0 {
		return nil
	}
	publishedSet := make(map[string]bool, len(published))
	for _, id := range published {
		publishedSet[id] = true
	}

	entries, err := s.queue.Peek(ctx, sweepPeekLimit)
	if err != nil {
		return fmt.Errorf("peek queue: %w", err)
	}
	for _, e := range entries {
		if !publishedSet[e.Item.ID] {
			continue
		}
		if err := s.queue.Remove(ctx, e.Item.ID); err != nil {
			s.log.Error("purge stale queue entry", "id", e.Item.ID, "error", err)
			continue
		}
		s.log.Info("purged stale queue entry", "id", e.Item.ID)
	}
	return nil
}

// Run drives the scheduler on its tick, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.TryPublishNext(ctx); err != nil {
				s.log.Error("scheduled publish", "error", err)
			}
		}
	}
}

// RunSweeps drives residency expiry and queue reconciliation on the
// given interval, blocking until ctx is cancelled.
func (s *Scheduler) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(ctx)
			if err := s.Reconcile(ctx); err != nil {
				s.log.Error("reconcile queue", "error", err)
			}
		}
	}
}
