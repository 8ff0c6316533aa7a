// Package relevance scores topical relevance of normalized news items.
package relevance

import (
	"math"
	"regexp"
	"strings"

	"newspipe/internal/model"
)

// Vocabulary is the weighted keyword set a Scorer matches against.
// Primary terms carry more weight than secondary terms.
type Vocabulary struct {
	Primary   []string
	Secondary []string
	Breaking  []string
}

// DefaultVocabulary covers the motorsport news domain.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Primary: []string{
			"formula 1", "f1", "grand prix", "qualifying", "pole position",
			"championship", "podium", "race", "driver", "team principal",
			"ferrari", "mercedes", "red bull", "mclaren", "aston martin",
			"verstappen", "hamilton", "leclerc", "norris", "alonso", "russell",
		},
		Secondary: []string{
			"motorsport", "pit stop", "overtake", "penalty", "safety car",
			"practice", "points", "circuit", "tyres", "drs", "steward",
			"alpine", "haas", "williams", "sauber", "paddock",
		},
		Breaking: []string{
			"breaking", "official", "confirmed", "crash", "retirement",
			"contract", "victory", "record", "disqualified",
		},
	}
}

const (
	primaryWeight   = 3.0
	secondaryWeight = 1.0

	// Contribution saturates: repeating a keyword past this count adds
	// nothing, so stuffing is not rewarded.
	maxHitsPerKeyword = 2

	capsPenalty  = 0.15
	promoPenalty = 0.2
)

var promoMarkers = []string{
	"buy now", "click here", "discount", "giveaway", "limited time",
	"promo code", "sponsored", "subscribe now",
}

var wordRe = regexp.MustCompile(`\S+`)

// Scorer computes relevance scores against a vocabulary.
type Scorer struct {
	vocab    Vocabulary
	minScore float64
}

// New creates a Scorer with the given vocabulary and rejection threshold.
func New(vocab Vocabulary, minScore float64) *Scorer {
	return &Scorer{vocab: vocab, minScore: minScore}
}

// MinScore returns the configured rejection threshold.
func (s *Scorer) MinScore() float64 { return s.minScore }

// Score computes the relevance of an item in [0,1] along with the
// keywords that matched. Weighted keyword hits are normalized by
// content length with diminishing returns and penalized for
// low-quality signals.
func (s *Scorer) Score(item model.NormalizedItem) model.RelevanceResult {
	text := strings.ToLower(item.Title + " " + item.Content)

	var weighted float64
	var matched []string
	for _, kw := range s.vocab.Primary {
		if hits := countHits(text, kw); hits > 0 {
			weighted += primaryWeight * float64(min(hits, maxHitsPerKeyword))
			matched = append(matched, kw)
		}
	}
	for _, kw := range s.vocab.Secondary {
		if hits := countHits(text, kw); hits > 0 {
			weighted += secondaryWeight * float64(min(hits, maxHitsPerKeyword))
			matched = append(matched, kw)
		}
	}

	words := len(wordRe.FindAllString(text, -1))
	if words == 0 {
		return model.RelevanceResult{}
	}

	// Diminishing returns: score grows with the square root of the
	// weighted hit mass, saturating around six strong matches.
	norm := math.Sqrt(weighted) / math.Sqrt(primaryWeight*6)
	score := math.Min(norm, 1.0)

	// The normalized title is lowercased, so the upper-case signal is
	// the one captured during normalization.
	if item.Shouting {
		score -= capsPenalty
	}
	for _, marker := range promoMarkers {
		if strings.Contains(text, marker) {
			score -= promoPenalty
			break
		}
	}

	score = math.Max(0, math.Min(score, 1))
	return model.RelevanceResult{Score: score, MatchedKeywords: matched}
}

// Relevant reports whether the result clears the rejection threshold.
func (s *Scorer) Relevant(r model.RelevanceResult) bool {
	return r.Score >= s.minScore
}

// HasBreakingTerm reports whether the item text contains one of the
// vocabulary's breaking-news terms. Used by the importance rubric.
func (s *Scorer) HasBreakingTerm(item model.NormalizedItem) bool {
	text := strings.ToLower(item.Title + " " + item.Content)
	for _, kw := range s.vocab.Breaking {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countHits(text, keyword string) int {
	return strings.Count(text, keyword)
}
