package publish

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram implements Sink by posting to a Telegram channel.
type Telegram struct {
	api       telegramAPI
	channelID int64
}

var _ Sink = (*Telegram)(nil)

// NewTelegram creates a Telegram sink for the given channel.
func NewTelegram(api *tgbotapi.BotAPI, channelID int64) *Telegram {
	return &Telegram{api: api, channelID: channelID}
}

// Publish sends the formatted content to the channel and returns the
// resulting message id.
func (t *Telegram) Publish(_ context.Context, text string) (int64, error) {
	msg := tgbotapi.NewMessage(t.channelID, text)
	msg.DisableWebPagePreview = true
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send to channel %d: %w", t.channelID, err)
	}
	return int64(sent.MessageID), nil
}
