package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newspipe/internal/ai"
	"newspipe/internal/dedup"
	"newspipe/internal/model"
	"newspipe/internal/relevance"
	"newspipe/internal/stats"
)

type memorySeen struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemorySeen() *memorySeen { return &memorySeen{seen: make(map[string]bool)} }

func (m *memorySeen) Remember(_ context.Context, fp string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[fp] {
		return false, nil
	}
	m.seen[fp] = true
	return true, nil
}

func (m *memorySeen) Forget(_ context.Context, fp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, fp)
	return nil
}

type memoryArchive struct {
	mu    sync.Mutex
	items []model.ProcessedItem
	down  bool
}

func (a *memoryArchive) SaveItem(_ context.Context, item model.ProcessedItem) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.down {
		return errors.New("storage unavailable")
	}
	a.items = append(a.items, item)
	return nil
}

func (a *memoryArchive) setDown(down bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.down = down
}

type memoryQueue struct {
	mu    sync.Mutex
	items []model.ProcessedItem
}

func (q *memoryQueue) Enqueue(_ context.Context, item model.ProcessedItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *memoryQueue) all() []model.ProcessedItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := make([]model.ProcessedItem, len(q.items))
	copy(cp, q.items)
	return cp
}

type stubSummarizer struct {
	mu    sync.Mutex
	calls int
	res   ai.Result
	err   error
}

func (s *stubSummarizer) Process(_ context.Context, _ ai.Request) (ai.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.res, s.err
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type failingClient struct {
	mu    sync.Mutex
	calls int
}

func (f *failingClient) Summarize(_ context.Context, _ ai.Request) (ai.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return ai.Result{}, errors.New("backend timeout")
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, summarizer Summarizer, minScore float64) (*Pipeline, *memoryQueue, *stats.Stats) {
	t.Helper()
	scorer := relevance.New(relevance.DefaultVocabulary(), minScore)
	router := NewRouter(model.LangRussian, summarizer, scorer, discardLog())
	d := dedup.New(newMemorySeen(), 24*time.Hour)
	queue := &memoryQueue{}
	st := &stats.Stats{}
	p := New(d, scorer, router, &memoryArchive{}, queue, st, 2, discardLog())
	return p, queue, st
}

func englishRaw(title, url string) model.RawItem {
	return model.RawItem{
		Source:      "feedA",
		Kind:        model.SourceRSS,
		Title:       title,
		Content:     "The formula 1 team confirmed the grand prix entry. The championship race continues with qualifying next week.",
		URL:         url,
		PublishedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func russianRaw(title, url string) model.RawItem {
	raw := englishRaw(title, url)
	raw.Content = "Команда Формулы 1 подтвердила участие в Гран-при. formula 1 grand prix championship qualifying"
	return raw
}

func TestFastPathSkipsBackend(t *testing.T) {
	summarizer := &stubSummarizer{res: ai.Result{Summary: "unused"}}
	p, queue, _ := newTestPipeline(t, summarizer, 0.1)

	raw := russianRaw("Формула 1: команда объявила состав на grand prix", "https://example.ru/news/1")
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	items := queue.all()
	if len(items) != 1 {
		t.Fatalf("queued items = %d, want 1", len(items))
	}
	if diff := cmp.Diff(model.PathFast, items[0].Path); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if got := summarizer.callCount(); got != 0 {
		t.Errorf("backend calls = %d, want 0 on fast path", got)
	}
}

func TestAIPathForForeignLanguage(t *testing.T) {
	summarizer := &stubSummarizer{res: ai.Result{
		Summary:   "Команда подтвердила участие.",
		KeyPoints: []string{"подтверждение"},
		Sentiment: model.SentimentPositive,
	}}
	p, queue, _ := newTestPipeline(t, summarizer, 0.1)

	raw := englishRaw("Team confirms grand prix entry for the f1 championship", "https://example.com/news/2")
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	items := queue.all()
	if len(items) != 1 {
		t.Fatalf("queued items = %d, want 1", len(items))
	}
	if diff := cmp.Diff(model.PathAI, items[0].Path); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if items[0].Summary != "Команда подтвердила участие." {
		t.Errorf("Summary = %q, want the backend summary", items[0].Summary)
	}
	if got := summarizer.callCount(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestBackendFailureFallsBackToFastPath(t *testing.T) {
	client := &failingClient{}
	adapter := ai.NewAdapter(client, 100*time.Millisecond, time.Millisecond, 1, discardLog())
	p, queue, _ := newTestPipeline(t, adapter, 0.1)

	raw := englishRaw("Team confirms grand prix entry for the f1 championship", "https://example.com/news/3")
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	items := queue.all()
	if len(items) != 1 {
		t.Fatalf("queued items = %d, want 1 (fallback must not drop the item)", len(items))
	}
	if diff := cmp.Diff(model.PathFast, items[0].Path); diff != "" {
		t.Errorf("Path mismatch (-want +got):\n%s", diff)
	}
	if client.calls != 2 {
		t.Errorf("backend attempts = %d, want 2 (one retry)", client.calls)
	}
}

func TestMirroredStoryReachesQueueOnce(t *testing.T) {
	summarizer := &stubSummarizer{res: ai.Result{Summary: "s", Sentiment: model.SentimentNeutral}}
	p, queue, st := newTestPipeline(t, summarizer, 0.1)
	ctx := context.Background()

	a := englishRaw("Team announces new car for the f1 championship", "https://example.com/story/42")
	a.Source = "feedA"
	b := englishRaw("Team announces new car for the f1 championship", "https://example.com/story/42?utm_source=mirror")
	b.Source = "feedB"

	if err := p.Process(ctx, a); err != nil {
		t.Fatalf("Process(a) error: %v", err)
	}
	if err := p.Process(ctx, b); err != nil {
		t.Fatalf("Process(b) error: %v", err)
	}

	if got := len(queue.all()); got != 1 {
		t.Errorf("queued items = %d, want 1 for a mirrored story", got)
	}
	if got := st.Snapshot().Duplicates; got != 1 {
		t.Errorf("duplicate counter = %d, want 1", got)
	}
}

func TestBelowThresholdItemNeverQueued(t *testing.T) {
	summarizer := &stubSummarizer{res: ai.Result{Summary: "s"}}
	p, queue, st := newTestPipeline(t, summarizer, 0.1)

	raw := model.RawItem{
		Source:      "feedA",
		Kind:        model.SourceRSS,
		Title:       "Local bakery opens second location",
		Content:     "Fresh bread daily at the new downtown shop.",
		URL:         "https://example.com/bakery",
		PublishedAt: time.Now().UTC(),
	}
	if err := p.Process(context.Background(), raw); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if got := len(queue.all()); got != 0 {
		t.Errorf("queued items = %d, want 0 below threshold", got)
	}
	if got := st.Snapshot().Rejected; got != 1 {
		t.Errorf("rejected counter = %d, want 1", got)
	}
}

func TestStorageFailureDoesNotBurnFingerprint(t *testing.T) {
	// A story that fails after passing dedup must still be accepted on
	// the next collection cycle once storage recovers.
	summarizer := &stubSummarizer{res: ai.Result{Summary: "s", Sentiment: model.SentimentNeutral}}
	scorer := relevance.New(relevance.DefaultVocabulary(), 0.1)
	router := NewRouter(model.LangRussian, summarizer, scorer, discardLog())
	archive := &memoryArchive{}
	queue := &memoryQueue{}
	p := New(dedup.New(newMemorySeen(), 24*time.Hour), scorer, router, archive, queue, &stats.Stats{}, 2, discardLog())
	ctx := context.Background()

	raw := englishRaw("Team confirms grand prix entry for the f1 championship", "https://example.com/news/7")

	archive.setDown(true)
	if err := p.Process(ctx, raw); err == nil {
		t.Fatal("Process() expected error while storage is down")
	}
	if got := len(queue.all()); got != 0 {
		t.Fatalf("queued items = %d, want 0 after failed save", got)
	}

	archive.setDown(false)
	if err := p.Process(ctx, raw); err != nil {
		t.Fatalf("Process() error after storage recovered: %v", err)
	}
	if got := len(queue.all()); got != 1 {
		t.Errorf("queued items = %d, want 1 after re-collection", got)
	}
}

func TestProcessedIDStableAcrossPaths(t *testing.T) {
	// The id is a function of the fingerprint, not of the branch taken.
	ok := &stubSummarizer{res: ai.Result{Summary: "s", Sentiment: model.SentimentNeutral}}
	failing := ai.NewAdapter(&failingClient{}, 50*time.Millisecond, time.Millisecond, 1, discardLog())

	pOK, qOK, _ := newTestPipeline(t, ok, 0.1)
	pFail, qFail, _ := newTestPipeline(t, failing, 0.1)

	raw := englishRaw("Team confirms grand prix entry for the f1 championship", "https://example.com/news/5")
	if err := pOK.Process(context.Background(), raw); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if err := pFail.Process(context.Background(), raw); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	idOK := qOK.all()[0].ID
	idFail := qFail.all()[0].ID
	if idOK != idFail {
		t.Errorf("id differs across branches: %s vs %s", idOK, idFail)
	}
}
