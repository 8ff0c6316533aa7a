// Package collector produces raw news items from external sources.
package collector

import (
	"context"
	"log/slog"
	"time"

	"newspipe/internal/model"
)

// Collector is a source of raw items. Delivery is at-least-once with
// no ordering guarantee; duplicates are handled downstream.
type Collector interface {
	Collect(ctx context.Context) ([]model.RawItem, error)
	Name() string
	Kind() model.SourceKind
}

// Runner polls a set of collectors on a fixed interval and pushes
// their items onto the intake channel.
type Runner struct {
	collectors []Collector
	out        chan<- model.RawItem
	interval   time.Duration
	log        *slog.Logger
}

// NewRunner creates a Runner feeding the given intake channel.
func NewRunner(collectors []Collector, out chan<- model.RawItem, interval time.Duration, log *slog.Logger) *Runner {
	return &Runner{
		collectors: collectors,
		out:        out,
		interval:   interval,
		log:        log,
	}
}

// Run polls immediately and then on every tick, blocking until ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.collectAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.collectAll(ctx)
		}
	}
}

func (r *Runner) collectAll(ctx context.Context) {
	for _, c := range r.collectors {
		if ctx.Err() != nil {
			return
		}
		items, err := c.Collect(ctx)
		if err != nil {
			r.log.Error("collect", "source", c.Name(), "kind", c.Kind(), "error", err)
			continue
		}
		r.log.Debug("collected", "source", c.Name(), "count", len(items))
		for _, item := range items {
			select {
			case r.out <- item:
			case <-ctx.Done():
				return
			}
		}
	}
}
