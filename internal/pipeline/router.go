package pipeline

import (
	"context"
	"log/slog"

	"newspipe/internal/ai"
	"newspipe/internal/dedup"
	"newspipe/internal/model"
	"newspipe/internal/relevance"
)

// Summarizer is the AI adapter as the router sees it.
type Summarizer interface {
	Process(ctx context.Context, req ai.Request) (ai.Result, error)
}

// Router decides the processing branch for each item: the fast path
// when the item is already in the target publication language, the AI
// path otherwise. A failing backend degrades to the fast path so every
// accepted item reaches the queue in some form.
type Router struct {
	target     model.Language
	targetName string
	summarizer Summarizer
	scorer     *relevance.Scorer
	log        *slog.Logger
}

// NewRouter creates a Router for the given target publication language.
func NewRouter(target model.Language, summarizer Summarizer, scorer *relevance.Scorer, log *slog.Logger) *Router {
	return &Router{
		target:     target,
		targetName: string(target),
		summarizer: summarizer,
		scorer:     scorer,
		log:        log,
	}
}

// Route builds the ProcessedItem for a scored item. The item id is a
// pure function of the item's fingerprint and is never regenerated.
func (r *Router) Route(ctx context.Context, item model.NormalizedItem, rel model.RelevanceResult) (model.ProcessedItem, error) {
	if err := ctx.Err(); err != nil {
		return model.ProcessedItem{}, err
	}

	id := dedup.Fingerprint(item)
	breaking := r.scorer.HasBreakingTerm(item)

	if item.Language == r.target {
		return buildFast(id, item, rel, breaking), nil
	}

	res, err := r.summarizer.Process(ctx, ai.Request{
		Title:      item.Title,
		Text:       item.Content,
		TargetLang: r.targetName,
		TemplateID: "news-summary-v1",
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.ProcessedItem{}, ctx.Err()
		}
		r.log.Warn("ai path failed, falling back to fast path", "id", id, "error", err)
		return buildFast(id, item, rel, breaking), nil
	}

	p := model.ProcessedItem{
		ID:             id,
		Title:          item.Title,
		Summary:        res.Summary,
		Content:        item.Content,
		URL:            item.URL,
		Source:         item.Source,
		Kind:           item.Kind,
		PublishedAt:    item.PublishedAt,
		RelevanceScore: rel.Score,
		Keywords:       rel.MatchedKeywords,
		KeyPoints:      res.KeyPoints,
		Sentiment:      res.Sentiment,
		Importance:     Importance(rel.Score, res.Sentiment, breaking),
		Tags:           mergeTags(res.Tags, rel.MatchedKeywords),
		Path:           model.PathAI,
		Processed:      true,
	}
	p.Formatted = Format(p)
	return p, nil
}

func mergeTags(aiTags, keywords []string) []string {
	if len(aiTags) > 0 {
		if len(aiTags) > maxTags {
			return aiTags[:maxTags]
		}
		return aiTags
	}
	return tagsFromKeywords(keywords)
}
