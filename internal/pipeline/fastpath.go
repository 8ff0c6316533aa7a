package pipeline

import (
	"strings"
	"unicode"

	"newspipe/internal/model"
)

const (
	summaryLimit = 250
	maxTags      = 5
)

// buildFast constructs a ProcessedItem directly from the original text
// without calling the backend: the summary is a truncation of the
// content, key points are empty, and the sentiment is neutral.
func buildFast(id string, item model.NormalizedItem, rel model.RelevanceResult, breaking bool) model.ProcessedItem {
	summary := truncate(item.Content, summaryLimit)
	if summary == "" {
		summary = item.Title
	}

	p := model.ProcessedItem{
		ID:             id,
		Title:          item.Title,
		Summary:        summary,
		Content:        item.Content,
		URL:            item.URL,
		Source:         item.Source,
		Kind:           item.Kind,
		PublishedAt:    item.PublishedAt,
		RelevanceScore: rel.Score,
		Keywords:       rel.MatchedKeywords,
		KeyPoints:      []string{},
		Sentiment:      model.SentimentNeutral,
		Importance:     Importance(rel.Score, model.SentimentNeutral, breaking),
		Tags:           tagsFromKeywords(rel.MatchedKeywords),
		Path:           model.PathFast,
		Processed:      true,
	}
	p.Formatted = Format(p)
	return p
}

// truncate cuts text to at most limit runes, preferring a word boundary.
func truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func tagsFromKeywords(keywords []string) []string {
	tags := make([]string, 0, maxTags)
	seen := make(map[string]bool, maxTags)
	for _, kw := range keywords {
		tag := titleCase(kw)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
