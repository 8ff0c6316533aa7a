package pipeline

import "newspipe/internal/model"

// Importance derives the 1-5 importance level from the relevance
// score, sentiment, and breaking-term signal. The mapping is a pure
// function: score bands give the base level, a non-neutral sentiment
// and a breaking term each add one, and the result is clamped to 1-5.
// A score of 0.8+ with non-neutral sentiment and a breaking term
// therefore always yields 5.
func Importance(score float64, sentiment model.Sentiment, breaking bool) int {
	var level int
	switch {
	case score >= 0.8:
		level = 3
	case score >= 0.6:
		level = 2
	default:
		level = 1
	}
	if sentiment != model.SentimentNeutral {
		level++
	}
	if breaking {
		level++
	}
	if level > 5 {
		level = 5
	}
	return level
}
