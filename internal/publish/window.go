package publish

import (
	"sync"
	"time"
)

// Window enforces a sliding-window publication rate limit: at most
// limit publications in any rolling span. Slots are reserved before
// the release and given back if the release fails, so a failed publish
// does not burn quota.
type Window struct {
	mu    sync.Mutex
	limit int
	span  time.Duration
	times []time.Time
	now   func() time.Time
}

// NewWindow creates a Window allowing limit events per span.
func NewWindow(limit int, span time.Duration) *Window {
	return &Window{
		limit: limit,
		span:  span,
		now:   time.Now,
	}
}

// Reserve claims a slot. It returns the reservation timestamp and true
// when the window has capacity.
func (w *Window) Reserve() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)
	if len(w.times) >= w.limit {
		return time.Time{}, false
	}
	w.times = append(w.times, now)
	return now, true
}

// Release gives back a previously reserved slot.
func (w *Window) Release(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, v := range w.times {
		if v.Equal(t) {
			w.times = append(w.times[:i], w.times[i+1:]...)
			return
		}
	}
}

// Used reports how many slots are currently occupied.
func (w *Window) Used() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.times)
}

func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	kept := w.times[:0]
	for _, t := range w.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.times = kept
}
