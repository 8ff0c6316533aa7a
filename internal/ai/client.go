// Package ai wraps the external summarization backend.
package ai

import (
	"context"

	"newspipe/internal/model"
)

// Request is the instruction payload sent to the backend.
type Request struct {
	Title      string
	Text       string
	TargetLang string
	TemplateID string
}

// Result is the structured output of a summarization call.
type Result struct {
	Summary        string
	KeyPoints      []string
	Sentiment      model.Sentiment
	TranslatedText string
	Tags           []string
}

// Client is the summarization backend. Implementations must be safe
// for concurrent use.
type Client interface {
	Summarize(ctx context.Context, req Request) (Result, error)
}
