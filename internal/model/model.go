// Package model defines the domain types used across the application.
package model

import "time"

// SourceKind identifies the class of collector a raw item came from.
type SourceKind string

// Supported source kinds.
const (
	SourceRSS     SourceKind = "rss"
	SourceChannel SourceKind = "channel"
	SourceReddit  SourceKind = "reddit"
	SourceWeb     SourceKind = "web"
)

// Language is the detected script language of an item's text.
type Language string

// Detected languages. The pipeline only distinguishes the target
// publication language from everything else.
const (
	LangRussian Language = "russian"
	LangOther   Language = "other"
	LangUnknown Language = "unknown"
)

// ProcessingPath records which pipeline branch produced an item.
type ProcessingPath string

// Processing paths.
const (
	PathFast ProcessingPath = "fast"
	PathAI   ProcessingPath = "ai"
)

// Sentiment is the tone classification returned by the AI backend.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ValidSentiment reports whether s is one of the three known values.
func ValidSentiment(s Sentiment) bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// RawItem is a news item as delivered by a collector, before any
// normalization. Immutable once created.
type RawItem struct {
	Source      string
	Kind        SourceKind
	Title       string
	Content     string
	URL         string
	PublishedAt time.Time
}

// NormalizedItem is a RawItem after canonicalization, carrying the
// detected language and the cleaned fields the scorer and router work
// on. Shouting records whether the original title was mostly
// upper-case; it is captured here because normalization lowercases the
// title the scorer sees.
type NormalizedItem struct {
	Source      string
	Kind        SourceKind
	Title       string
	Content     string
	URL         string
	PublishedAt time.Time
	Language    Language
	Shouting    bool
}

// RelevanceResult is the scorer's verdict for a normalized item.
type RelevanceResult struct {
	Score           float64
	MatchedKeywords []string
}

// ProcessedItem is a fully processed news item ready for moderation
// and publication. ID is derived from the item's fingerprint and is
// stable across reprocessing. Published flips to true at most once.
type ProcessedItem struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Summary        string         `json:"summary"`
	Content        string         `json:"content"`
	URL            string         `json:"url"`
	Source         string         `json:"source"`
	Kind           SourceKind     `json:"source_kind"`
	PublishedAt    time.Time      `json:"published_at"`
	RelevanceScore float64        `json:"relevance_score"`
	Keywords       []string       `json:"keywords"`
	KeyPoints      []string       `json:"key_points"`
	Sentiment      Sentiment      `json:"sentiment"`
	Importance     int            `json:"importance_level"`
	Formatted      string         `json:"formatted_content"`
	Tags           []string       `json:"tags"`
	Path           ProcessingPath `json:"processing_path"`
	Processed      bool           `json:"processed"`
	Published      bool           `json:"published"`
}

// Verdict is a moderation decision for a queued item.
type Verdict string

// Moderation verdicts.
const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
	VerdictDefer   Verdict = "defer"
)

// Decision ties a verdict to a processed item id. Delivered
// asynchronously by the moderation consumer; handling is idempotent.
type Decision struct {
	ID      string
	Verdict Verdict
}
