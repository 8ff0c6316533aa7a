package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"newspipe/internal/model"
)

// ErrFull is returned by a bounded Memory queue when its buffer is
// exhausted. Callers pause intake rather than drop items.
var ErrFull = fmt.Errorf("queue buffer full")

// Memory implements Queue in process memory with the same semantics as
// the Redis queue. It backs tests and serves as the bounded
// backpressure buffer while the shared store is unavailable.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	ids     map[string]bool
	limit   int
}

var _ Queue = (*Memory)(nil)

// NewMemory creates an in-memory queue. A limit of 0 means unbounded.
func NewMemory(limit int) *Memory {
	return &Memory{ids: make(map[string]bool), limit: limit}
}

// Enqueue appends the item unless its id is already present or the
// buffer is full.
func (m *Memory) Enqueue(_ context.Context, item model.ProcessedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[item.ID] {
		return nil
	}
	if m.limit > 0 && len(m.entries) >= m.limit {
		return ErrFull
	}
	m.ids[item.ID] = true
	m.entries = append(m.entries, Entry{Item: item, EnqueuedAt: time.Now().UTC()})
	return nil
}

// Peek returns up to limit entries in arrival order without consuming them.
func (m *Memory) Peek(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, limit)
	copy(out, m.entries[:limit])
	return out, nil
}

// Remove deletes the entry with the given id. Absent ids are a no-op.
func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ids[id] {
		return nil
	}
	delete(m.ids, id)
	for i, e := range m.entries {
		if e.Item.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of entries currently queued.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// Restore puts drained entries back at the front of the buffer,
// keeping their original enqueue timestamps so a failed flush does not
// reset the residency clock. Entries whose id reappeared meanwhile are
// skipped.
func (m *Memory) Restore(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if m.ids[e.Item.ID] {
			continue
		}
		m.ids[e.Item.ID] = true
		kept = append(kept, e)
	}
	m.entries = append(kept, m.entries...)
}

// Drain pops up to limit entries from the front, consuming them. Used
// to move buffered entries to the shared store once it recovers.
func (m *Memory) Drain(limit int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || len(m.entries) == 0 {
		return nil
	}
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, limit)
	copy(out, m.entries[:limit])
	m.entries = m.entries[limit:]
	for _, e := range out {
		delete(m.ids, e.Item.ID)
	}
	return out
}
