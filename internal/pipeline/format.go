package pipeline

import (
	"fmt"
	"strings"

	"newspipe/internal/model"
)

// Format renders the final presentation text for the output channel.
func Format(p model.ProcessedItem) string {
	var b strings.Builder

	b.WriteString(headline(p.Importance))
	b.WriteString(" ")
	b.WriteString(p.Title)
	b.WriteString("\n\n")
	b.WriteString(p.Summary)

	if len(p.KeyPoints) > 0 {
		b.WriteString("\n")
		for _, kp := range p.KeyPoints {
			fmt.Fprintf(&b, "\n• %s", kp)
		}
	}

	if p.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(p.URL)
	}

	if len(p.Tags) > 0 {
		b.WriteString("\n\n")
		for i, tag := range p.Tags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#" + strings.ReplaceAll(tag, " ", ""))
		}
	}

	return b.String()
}

func headline(importance int) string {
	switch {
	case importance >= 5:
		return "🔴"
	case importance >= 3:
		return "🟡"
	default:
		return "📰"
	}
}
