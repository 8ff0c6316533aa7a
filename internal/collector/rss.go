package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"newspipe/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RSS fetches a single RSS or Atom feed and maps its entries to raw items.
type RSS struct {
	client  HTTPClient
	name    string
	url     string
	timeout time.Duration
}

// NewRSS creates an RSS collector for the given feed URL.
func NewRSS(client HTTPClient, name, url string) *RSS {
	return &RSS{
		client:  client,
		name:    name,
		url:     url,
		timeout: 30 * time.Second,
	}
}

// Name returns the configured source name.
func (r *RSS) Name() string { return r.name }

// Kind reports the source kind.
func (r *RSS) Kind() model.SourceKind { return model.SourceRSS }

// Collect downloads and parses the feed.
func (r *RSS) Collect(ctx context.Context) ([]model.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "newspipe/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, model.RawItem{
			Title:       it.Title,
			Content:     itemContent(it),
			URL:         it.Link,
			Source:      r.name,
			Kind:        model.SourceRSS,
			PublishedAt: itemTime(it),
		})
	}
	return items, nil
}

// itemContent prefers the full content element and falls back to the
// description.
func itemContent(it *gofeed.Item) string {
	if it.Content != "" {
		return it.Content
	}
	return it.Description
}

// itemTime returns the entry's publication time, or the current time
// when the feed carries none.
func itemTime(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return it.PublishedParsed.UTC()
	}
	if it.UpdatedParsed != nil {
		return it.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}
