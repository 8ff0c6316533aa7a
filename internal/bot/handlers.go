package bot

import (
	"context"
	"fmt"

	"newspipe/internal/publish"
)

const queueViewLimit = 10

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the newspipe moderation bot!

Collected stories that pass relevance filtering land in the review
queue. Approve or reject them with the buttons under each card.

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Moderation:
/queue — show pending items
/stats — pipeline counters
/publish — release the next approved item now

Each review card has Approve / Reject / Later buttons.
Approved items are posted automatically within the hourly limit.
Undecided items expire after the residency window.`)
}

func (b *Bot) handleQueue(ctx context.Context, chatID int64) {
	entries, err := b.queue.Peek(ctx, queueViewLimit)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to read the queue: %v", err))
		return
	}
	total, err := b.queue.Len(ctx)
	if err != nil {
		total = len(entries)
	}
	b.reply(chatID, FormatQueue(entries, total))
}

func (b *Bot) handleStats(chatID int64) {
	b.reply(chatID, FormatStats(b.stats.Snapshot()))
}

func (b *Bot) handlePublish(ctx context.Context, chatID int64) {
	outcome, err := b.publisher.TryPublishNext(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Publish failed: %v", err))
		return
	}
	switch outcome {
	case publish.OutcomePublished:
		b.reply(chatID, "Published the next approved item.")
	case publish.OutcomeRateLimited:
		b.reply(chatID, "Hourly limit reached. Try again later.")
	case publish.OutcomeEmpty:
		b.reply(chatID, "Nothing approved to publish.")
	}
}
