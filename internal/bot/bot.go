// Package bot is the Telegram moderation front end: it shows queued
// items to reviewers and turns their taps into publication decisions.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newspipe/internal/config"
	"newspipe/internal/model"
	"newspipe/internal/publish"
	"newspipe/internal/queue"
	"newspipe/internal/stats"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Decider receives reviewer verdicts.
type Decider interface {
	Decide(ctx context.Context, d model.Decision)
}

// Publisher triggers a manual release attempt.
type Publisher interface {
	TryPublishNext(ctx context.Context) (publish.Outcome, error)
}

// Bot handles moderator commands and decision callbacks.
type Bot struct {
	api       telegramAPI
	decider   Decider
	publisher Publisher
	queue     queue.Queue
	stats     *stats.Stats
	cfg       *config.Config
	log       *slog.Logger
}

// New creates a Bot with the given Telegram token. The decider is set
// separately because the moderation consumer presents through the bot.
func New(token string, publisher Publisher, q queue.Queue, st *stats.Stats, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:       api,
		publisher: publisher,
		queue:     q,
		stats:     st,
		cfg:       cfg,
		log:       log,
	}, nil
}

// SetDecider wires the verdict receiver. Must be called before Run.
func (b *Bot) SetDecider(d Decider) {
	b.decider = d
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// Present implements the moderation consumer's Presenter: it sends a
// review card with approve/reject/defer buttons to the moderation chat.
func (b *Bot) Present(_ context.Context, entry queue.Entry) error {
	msg := tgbotapi.NewMessage(b.cfg.ModerationChatID, FormatReview(entry))
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = decisionKeyboard(entry.Item.ID)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send review card: %w", err)
	}
	return nil
}

func decisionKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", "approve:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Reject", "reject:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Later", "defer:"+id),
		),
	)
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "queue":
		b.handleQueue(ctx, chatID)
	case "stats":
		b.handleStats(chatID)
	case "publish":
		b.handlePublish(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return
	}
	action, id := parts[0], parts[1]

	b.log.Info("callback",
		"action", action,
		"id", id,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case "approve":
		b.decider.Decide(ctx, model.Decision{ID: id, Verdict: model.VerdictApprove})
		b.reply(chatID, fmt.Sprintf("Approved %s. It will go out with the next free slot.", shortID(id)))
	case "reject":
		b.decider.Decide(ctx, model.Decision{ID: id, Verdict: model.VerdictReject})
		b.reply(chatID, fmt.Sprintf("Rejected %s.", shortID(id)))
	case "defer":
		b.decider.Decide(ctx, model.Decision{ID: id, Verdict: model.VerdictDefer})
		b.reply(chatID, fmt.Sprintf("Deferred %s. It stays in the queue.", shortID(id)))
	}
}
