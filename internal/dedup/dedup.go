// Package dedup canonicalizes raw items and drops repeats by fingerprint.
package dedup

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"newspipe/internal/lang"
	"newspipe/internal/model"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// trackingParams are query parameters stripped during URL normalization
// so mirror links collapse to one fingerprint.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"source":       true,
	"utm_campaign": true,
	"utm_content":  true,
	"utm_medium":   true,
	"utm_source":   true,
	"utm_term":     true,
}

// SeenStore tracks recently seen fingerprints within a bounded horizon.
type SeenStore interface {
	// Remember records fp with the given TTL. It returns true if fp was
	// not already present.
	Remember(ctx context.Context, fp string, ttl time.Duration) (bool, error)
	// Forget removes fp so a later Remember reports it fresh again.
	Forget(ctx context.Context, fp string) error
}

// Deduplicator canonicalizes raw items and filters ones whose
// fingerprint has been seen within the horizon.
type Deduplicator struct {
	seen    SeenStore
	horizon time.Duration
}

// New creates a Deduplicator over the given seen-store.
func New(seen SeenStore, horizon time.Duration) *Deduplicator {
	return &Deduplicator{seen: seen, horizon: horizon}
}

// Normalize canonicalizes a raw item: the title is lowercased and
// trimmed, whitespace is collapsed, HTML tags are stripped from the
// content, and tracking parameters are removed from the URL. The
// detected language is computed once here.
func Normalize(raw model.RawItem) (model.NormalizedItem, error) {
	if strings.TrimSpace(raw.Title) == "" {
		return model.NormalizedItem{}, fmt.Errorf("item from %s has empty title", raw.Source)
	}

	title := whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw.Title)), " ")
	content := htmlTagRe.ReplaceAllString(raw.Content, "")
	content = whitespaceRe.ReplaceAllString(strings.TrimSpace(content), " ")

	return model.NormalizedItem{
		Source:      raw.Source,
		Kind:        raw.Kind,
		Title:       title,
		Content:     content,
		URL:         normalizeURL(raw.URL),
		PublishedAt: raw.PublishedAt,
		Language:    lang.Detect(raw.Title + " " + content),
		Shouting:    isShouting(raw.Title),
	}, nil
}

// isShouting reports whether more than 30% of the title's letters are
// upper-case. Measured on the original title: the normalized title is
// already lowercased.
func isShouting(title string) bool {
	var upper, letters int
	for _, r := range title {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters < 10 {
		return false
	}
	return float64(upper)/float64(letters) > 0.3
}

// Fingerprint derives the dedup key from the normalized title and the
// URL authority+path. The same story republished by a mirror source
// collapses to one fingerprint.
func Fingerprint(item model.NormalizedItem) string {
	key := item.Title
	if u, err := url.Parse(item.URL); err == nil && u.Host != "" {
		key += "|" + u.Host + u.Path
	} else {
		key += "|" + item.Source
	}
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:16])
}

// Check records the fingerprint in the seen-store and reports whether
// it was already present within the horizon.
func (d *Deduplicator) Check(ctx context.Context, fp string) (bool, error) {
	fresh, err := d.seen.Remember(ctx, fp, d.horizon)
	if err != nil {
		return false, fmt.Errorf("remember fingerprint: %w", err)
	}
	return !fresh, nil
}

// Forget releases a previously recorded fingerprint. Called when a
// downstream step fails after Check, so a later re-collection of the
// same story is not silently dropped.
func (d *Deduplicator) Forget(ctx context.Context, fp string) error {
	if err := d.seen.Forget(ctx, fp); err != nil {
		return fmt.Errorf("forget fingerprint: %w", err)
	}
	return nil
}

func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}
