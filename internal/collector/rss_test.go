package collector

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newspipe/internal/model"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Paddock News</title>
    <item>
      <title>Verstappen takes pole in Monaco</title>
      <description>Qualifying report from the streets.</description>
      <link>https://example.com/monaco-pole</link>
      <pubDate>Sat, 01 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Team principal interview</title>
      <description>Long read.</description>
      <link>https://example.com/interview</link>
    </item>
  </channel>
</rss>`

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func TestRSSCollect(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: sampleFeed, statusCode: 200},
			wantItems: 2,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRSS(tt.transport, "paddock", "https://example.com/rss")
			items, err := c.Collect(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantItems, len(items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRSSCollectMapsFields(t *testing.T) {
	c := NewRSS(&mockTransport{body: sampleFeed, statusCode: 200}, "paddock", "https://example.com/rss")
	items, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	want := model.RawItem{
		Title:       "Verstappen takes pole in Monaco",
		Content:     "Qualifying report from the streets.",
		URL:         "https://example.com/monaco-pole",
		Source:      "paddock",
		Kind:        model.SourceRSS,
		PublishedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, items[0]); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}

	// The second entry has no pubDate; the collector stamps it itself.
	if items[1].PublishedAt.IsZero() {
		t.Error("PublishedAt is zero for entry without pubDate")
	}
}

func TestRunnerForwardsItems(t *testing.T) {
	out := make(chan model.RawItem, 10)
	c := NewRSS(&mockTransport{body: sampleFeed, statusCode: 200}, "paddock", "https://example.com/rss")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRunner([]Collector{c}, out, time.Hour, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	var got []model.RawItem
	for i := 0; i < 2; i++ {
		select {
		case item := <-out:
			got = append(got, item)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for items")
		}
	}
	cancel()
	<-done

	if len(got) != 2 {
		t.Fatalf("got %d items, want 2", len(got))
	}
}

func TestRunnerContinuesAfterFailure(t *testing.T) {
	out := make(chan model.RawItem, 10)
	bad := NewRSS(&mockTransport{err: io.ErrUnexpectedEOF}, "broken", "https://example.com/bad")
	good := NewRSS(&mockTransport{body: sampleFeed, statusCode: 200}, "paddock", "https://example.com/rss")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRunner([]Collector{bad, good}, out, time.Hour, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	select {
	case item := <-out:
		if item.Source != "paddock" {
			t.Errorf("Source = %q, want paddock", item.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy source starved by a failing one")
	}
}
