package bot

import (
	"fmt"
	"strings"

	"newspipe/internal/queue"
	"newspipe/internal/stats"
)

// FormatReview renders a queued item as a review card.
func FormatReview(entry queue.Entry) string {
	item := entry.Item
	var b strings.Builder
	fmt.Fprintf(&b, "Review %s\n\n", shortID(item.ID))
	b.WriteString(item.Title)
	if item.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(item.Summary)
	}
	fmt.Fprintf(&b, "\n\nSource: %s | Score: %.2f | Importance: %d/5 | Path: %s",
		item.Source, item.RelevanceScore, item.Importance, item.Path)
	if item.URL != "" {
		b.WriteString("\n")
		b.WriteString(item.URL)
	}
	return b.String()
}

// FormatQueue renders the pending queue for display.
func FormatQueue(entries []queue.Entry, total int) string {
	if len(entries) == 0 {
		return "The moderation queue is empty."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Pending items (%d total):\n", total)
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s [%d/5] %s\n   queued %s\n",
			shortID(e.Item.ID), e.Item.Importance, e.Item.Title,
			e.EnqueuedAt.Format("2006-01-02 15:04"))
	}
	if total > len(entries) {
		fmt.Fprintf(&b, "\n...and %d more.", total-len(entries))
	}
	return b.String()
}

// FormatStats renders pipeline counters for display.
func FormatStats(s stats.Snapshot) string {
	var b strings.Builder
	b.WriteString("Pipeline stats:\n")
	fmt.Fprintf(&b, "\nCollected: %d\n", s.Collected)
	fmt.Fprintf(&b, "Duplicates dropped: %d\n", s.Duplicates)
	fmt.Fprintf(&b, "Below threshold: %d\n", s.Rejected)
	fmt.Fprintf(&b, "Processed fast: %d\n", s.ProcessedFast)
	fmt.Fprintf(&b, "Processed with AI: %d\n", s.ProcessedAI)
	fmt.Fprintf(&b, "Published: %d\n", s.Published)
	fmt.Fprintf(&b, "Publish failures: %d\n", s.PublishFailures)
	return b.String()
}

// shortID abbreviates a fingerprint for chat display.
func shortID(id string) string {
	if len(id) > 8 {
		return "#" + id[:8]
	}
	return "#" + id
}
