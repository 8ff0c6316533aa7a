// Package stats tracks pipeline counters.
package stats

import "sync/atomic"

// Stats holds the pipeline counters. All methods are safe for
// concurrent use.
type Stats struct {
	collected       atomic.Int64
	duplicates      atomic.Int64
	rejected        atomic.Int64
	processedFast   atomic.Int64
	processedAI     atomic.Int64
	published       atomic.Int64
	publishFailures atomic.Int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Collected       int64
	Duplicates      int64
	Rejected        int64
	ProcessedFast   int64
	ProcessedAI     int64
	Published       int64
	PublishFailures int64
}

// Collected increments the count of raw items received from collectors.
func (s *Stats) Collected() { s.collected.Add(1) }

// Duplicate increments the count of items dropped by the deduplicator.
func (s *Stats) Duplicate() { s.duplicates.Add(1) }

// Rejected increments the count of items filtered for low relevance.
func (s *Stats) Rejected() { s.rejected.Add(1) }

// ProcessedFast increments the count of items produced via the fast path.
func (s *Stats) ProcessedFast() { s.processedFast.Add(1) }

// ProcessedAI increments the count of items produced via the AI path.
func (s *Stats) ProcessedAI() { s.processedAI.Add(1) }

// Published increments the count of items released to the channel.
func (s *Stats) Published() { s.published.Add(1) }

// PublishFailure increments the count of failed channel releases.
func (s *Stats) PublishFailure() { s.publishFailures.Add(1) }

// Snapshot returns a copy of the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Collected:       s.collected.Load(),
		Duplicates:      s.duplicates.Load(),
		Rejected:        s.rejected.Load(),
		ProcessedFast:   s.processedFast.Load(),
		ProcessedAI:     s.processedAI.Load(),
		Published:       s.published.Load(),
		PublishFailures: s.publishFailures.Load(),
	}
}
