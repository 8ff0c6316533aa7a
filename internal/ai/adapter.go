package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspipe/internal/model"
)

// Adapter wraps a Client with a per-call timeout, a single retry with
// fixed backoff, output validation, and a bound on concurrent backend
// calls. Given the same input it is idempotent; it holds no locks
// across the network call.
type Adapter struct {
	client  Client
	timeout time.Duration
	backoff time.Duration
	sem     chan struct{}
	log     *slog.Logger
}

// NewAdapter creates an Adapter. concurrency caps the number of
// in-flight backend calls.
func NewAdapter(client Client, timeout, backoff time.Duration, concurrency int, log *slog.Logger) *Adapter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Adapter{
		client:  client,
		timeout: timeout,
		backoff: backoff,
		sem:     make(chan struct{}, concurrency),
		log:     log,
	}
}

// Process calls the backend, retrying once on failure. The returned
// result is validated: an empty summary is an error, an unknown
// sentiment is repaired to neutral, a nil key-point list becomes empty.
// Callers fall back to the fast path when an error is returned.
func (a *Adapter) Process(ctx context.Context, req Request) (Result, error) {
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	defer func() { <-a.sem }()

	res, err := a.call(ctx, req)
	if err != nil {
		a.log.Warn("backend call failed, retrying", "error", err)
		select {
		case <-time.After(a.backoff):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
		res, err = a.call(ctx, req)
		if err != nil {
			return Result{}, fmt.Errorf("backend failed after retry: %w", err)
		}
	}

	return repair(res)
}

func (a *Adapter) call(ctx context.Context, req Request) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.client.Summarize(callCtx, req)
}

func repair(res Result) (Result, error) {
	if res.Summary == "" {
		return Result{}, fmt.Errorf("backend returned empty summary")
	}
	if !model.ValidSentiment(res.Sentiment) {
		res.Sentiment = model.SentimentNeutral
	}
	if res.KeyPoints == nil {
		res.KeyPoints = []string{}
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}
	return res, nil
}
