package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newspipe/internal/model"
)

// Reddit fetches the newest posts of a subreddit through its public
// JSON listing. No API credentials are needed for read access.
type Reddit struct {
	client    HTTPClient
	subreddit string
	timeout   time.Duration
}

// NewReddit creates a collector for the given subreddit name (without
// the "r/" prefix).
func NewReddit(client HTTPClient, subreddit string) *Reddit {
	return &Reddit{
		client:    client,
		subreddit: subreddit,
		timeout:   30 * time.Second,
	}
}

// Name returns the source name in "r/<subreddit>" form.
func (r *Reddit) Name() string { return "r/" + r.subreddit }

// Kind reports the source kind.
func (r *Reddit) Kind() model.SourceKind { return model.SourceReddit }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	SelfText   string  `json:"selftext"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// Collect downloads the newest posts and maps them to raw items.
func (r *Reddit) Collect(ctx context.Context) ([]model.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	url := fmt.Sprintf("https://www.reddit.com/r/%s/new.json?limit=25", r.subreddit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	items := make([]model.RawItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		items = append(items, model.RawItem{
			Title:       post.Title,
			Content:     post.SelfText,
			URL:         postURL(post),
			Source:      r.Name(),
			Kind:        model.SourceReddit,
			PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
		})
	}
	return items, nil
}

// postURL prefers the external link a post points at and falls back to
// the discussion thread for self posts.
func postURL(post redditPost) string {
	if post.URL != "" {
		return post.URL
	}
	return "https://www.reddit.com" + post.Permalink
}
