// Package lang provides script-based language detection for news text.
package lang

import (
	"unicode"

	"newspipe/internal/model"
)

// cyrillicThreshold is the fraction of alphabetic runes that must be
// Cyrillic for a text to count as Russian.
const cyrillicThreshold = 0.3

// Detect classifies text by script. Texts whose alphabetic runes are
// more than 30% Cyrillic are Russian; texts with no letters at all are
// unknown. The result depends only on the input.
func Detect(text string) model.Language {
	var cyrillic, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}
	if letters == 0 {
		return model.LangUnknown
	}
	if float64(cyrillic)/float64(letters) > cyrillicThreshold {
		return model.LangRussian
	}
	return model.LangOther
}
