// Package pipeline runs the content processing stages: dedup, scoring,
// routing, archiving, and hand-off to the moderation queue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"newspipe/internal/dedup"
	"newspipe/internal/model"
	"newspipe/internal/relevance"
	"newspipe/internal/stats"
)

// Archive persists processed items.
type Archive interface {
	SaveItem(ctx context.Context, item model.ProcessedItem) error
}

// Enqueuer hands processed items to the moderation queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, item model.ProcessedItem) error
}

// Pipeline processes raw items end to end. Distinct items are
// independent: workers run them in parallel with no ordering
// requirement, and cancelling one does not affect the others.
type Pipeline struct {
	dedup   *dedup.Deduplicator
	scorer  *relevance.Scorer
	router  *Router
	archive Archive
	queue   Enqueuer
	stats   *stats.Stats
	workers int
	log     *slog.Logger
}

// New creates a Pipeline with the given number of workers.
func New(d *dedup.Deduplicator, scorer *relevance.Scorer, router *Router, archive Archive, queue Enqueuer, st *stats.Stats, workers int, log *slog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		dedup:   d,
		scorer:  scorer,
		router:  router,
		archive: archive,
		queue:   queue,
		stats:   st,
		workers: workers,
		log:     log,
	}
}

// Process runs one raw item through dedup, scoring, routing, the
// archive, and the moderation queue. Duplicates and below-threshold
// items are dropped silently with a counter increment.
func (p *Pipeline) Process(ctx context.Context, raw model.RawItem) error {
	p.stats.Collected()

	item, err := dedup.Normalize(raw)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	fp := dedup.Fingerprint(item)
	duplicate, err := p.dedup.Check(ctx, fp)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if duplicate {
		p.stats.Duplicate()
		p.log.Debug("duplicate dropped", "fingerprint", fp, "title", item.Title)
		return nil
	}

	rel := p.scorer.Score(item)
	if !p.scorer.Relevant(rel) {
		p.stats.Rejected()
		p.log.Debug("below relevance threshold", "score", rel.Score, "title", item.Title)
		return nil
	}

	processed, err := p.router.Route(ctx, item, rel)
	if err != nil {
		p.forget(ctx, fp)
		return fmt.Errorf("route: %w", err)
	}

	switch processed.Path {
	case model.PathAI:
		p.stats.ProcessedAI()
	default:
		p.stats.ProcessedFast()
	}

	if err := p.archive.SaveItem(ctx, processed); err != nil {
		p.forget(ctx, fp)
		return fmt.Errorf("save item: %w", err)
	}
	if err := p.queue.Enqueue(ctx, processed); err != nil {
		p.forget(ctx, fp)
		return fmt.Errorf("enqueue: %w", err)
	}

	p.log.Info("item queued for moderation",
		"id", processed.ID,
		"path", processed.Path,
		"importance", processed.Importance,
		"score", processed.RelevanceScore,
	)
	return nil
}

// forget releases the fingerprint after a downstream failure so a
// re-collection of the same story gets another attempt at the queue.
func (p *Pipeline) forget(ctx context.Context, fp string) {
	if err := p.dedup.Forget(ctx, fp); err != nil {
		p.log.Error("release fingerprint", "fingerprint", fp, "error", err)
	}
}

// Run drains the intake channel with the configured number of workers,
// blocking until the channel closes or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, in <-chan model.RawItem) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, open := <-in:
					if !open {
						return
					}
					if err := p.Process(ctx, raw); err != nil {
						p.log.Error("process item", "source", raw.Source, "error", err)
					}
				}
			}
		}()
	}
	wg.Wait()
}
