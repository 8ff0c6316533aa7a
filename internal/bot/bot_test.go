package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newspipe/internal/config"
	"newspipe/internal/model"
	"newspipe/internal/publish"
	"newspipe/internal/queue"
	"newspipe/internal/stats"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
	Markup interface{}
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.mu.Lock()
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text, Markup: msg.ReplyMarkup})
		m.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

type mockDecider struct {
	mu        sync.Mutex
	decisions []model.Decision
}

func (m *mockDecider) Decide(_ context.Context, d model.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
}

type mockPublisher struct {
	outcome publish.Outcome
	err     error
	calls   int
}

func (m *mockPublisher) TryPublishNext(_ context.Context) (publish.Outcome, error) {
	m.calls++
	return m.outcome, m.err
}

func newTestBot(api *mockAPI, decider Decider, publisher Publisher, q queue.Queue) *Bot {
	return &Bot{
		api:       api,
		decider:   decider,
		publisher: publisher,
		queue:     q,
		stats:     &stats.Stats{},
		cfg:       &config.Config{ModerationChatID: 77, AllowedUsers: []int64{1}},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func command(text string, userID, chatID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func callback(data string, userID, chatID int64) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

// --- tests ---

func TestHandleCallbackDecisions(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantVerdict model.Verdict
		wantNone    bool
	}{
		{name: "approve", data: "approve:abc123", wantVerdict: model.VerdictApprove},
		{name: "reject", data: "reject:abc123", wantVerdict: model.VerdictReject},
		{name: "defer", data: "defer:abc123", wantVerdict: model.VerdictDefer},
		{name: "malformed", data: "approve", wantNone: true},
		{name: "empty id", data: "approve:", wantNone: true},
		{name: "unknown action", data: "boost:abc123", wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decider := &mockDecider{}
			b := newTestBot(&mockAPI{}, decider, &mockPublisher{}, queue.NewMemory(0))

			b.handleCallback(context.Background(), callback(tt.data, 1, 10))

			if tt.wantNone {
				if len(decider.decisions) != 0 {
					t.Fatalf("got decisions %v, want none", decider.decisions)
				}
				return
			}
			if len(decider.decisions) != 1 {
				t.Fatalf("got %d decisions, want 1", len(decider.decisions))
			}
			d := decider.decisions[0]
			if d.ID != "abc123" || d.Verdict != tt.wantVerdict {
				t.Errorf("decision = %+v, want id abc123 verdict %s", d, tt.wantVerdict)
			}
		})
	}
}

func TestHandlePublishOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  publish.Outcome
		wantText string
	}{
		{name: "published", outcome: publish.OutcomePublished, wantText: "Published"},
		{name: "rate limited", outcome: publish.OutcomeRateLimited, wantText: "Hourly limit"},
		{name: "empty", outcome: publish.OutcomeEmpty, wantText: "Nothing approved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			pub := &mockPublisher{outcome: tt.outcome}
			b := newTestBot(api, &mockDecider{}, pub, queue.NewMemory(0))

			b.handlePublish(context.Background(), 10)

			if pub.calls != 1 {
				t.Fatalf("TryPublishNext called %d times, want 1", pub.calls)
			}
			if got := api.lastText(); !strings.Contains(got, tt.wantText) {
				t.Errorf("reply %q does not contain %q", got, tt.wantText)
			}
		})
	}
}

func TestHandleQueue(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory(0)
	if err := q.Enqueue(ctx, model.ProcessedItem{ID: "abc12345ff", Title: "pole position", Importance: 4}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	api := &mockAPI{}
	b := newTestBot(api, &mockDecider{}, &mockPublisher{}, q)

	b.handleQueue(ctx, 10)

	got := api.lastText()
	if !strings.Contains(got, "pole position") {
		t.Errorf("queue view %q missing item title", got)
	}
	if !strings.Contains(got, "#abc12345") {
		t.Errorf("queue view %q missing short id", got)
	}
}

func TestHandleQueueEmpty(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, &mockDecider{}, &mockPublisher{}, queue.NewMemory(0))

	b.handleQueue(context.Background(), 10)

	if got := api.lastText(); !strings.Contains(got, "empty") {
		t.Errorf("reply %q, want empty-queue notice", got)
	}
}

func TestPresentSendsCardWithKeyboard(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, &mockDecider{}, &mockPublisher{}, queue.NewMemory(0))

	entry := queue.Entry{
		Item: model.ProcessedItem{
			ID:         "abc12345ff",
			Title:      "race report",
			Summary:    "short recap",
			Source:     "feedA",
			Importance: 3,
			Path:       model.PathFast,
		},
		EnqueuedAt: time.Now(),
	}
	if err := b.Present(context.Background(), entry); err != nil {
		t.Fatalf("Present() error: %v", err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	msg := api.sent[0]
	if msg.ChatID != 77 {
		t.Errorf("ChatID = %d, want moderation chat 77", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "race report") {
		t.Errorf("card %q missing title", msg.Text)
	}
	markup, ok := msg.Markup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("markup type %T, want InlineKeyboardMarkup", msg.Markup)
	}
	var datas []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				datas = append(datas, *btn.CallbackData)
			}
		}
	}
	want := []string{"approve:abc12345ff", "reject:abc12345ff", "defer:abc12345ff"}
	for i, w := range want {
		if i >= len(datas) || datas[i] != w {
			t.Fatalf("callback datas = %v, want %v", datas, want)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, &mockDecider{}, &mockPublisher{}, queue.NewMemory(0))

	b.handleCommand(context.Background(), command("/frobnicate", 1, 10))

	if got := api.lastText(); !strings.Contains(got, "Unknown command") {
		t.Errorf("reply %q, want unknown-command notice", got)
	}
}

func TestStatsRendering(t *testing.T) {
	st := &stats.Stats{}
	st.Collected()
	st.Collected()
	st.Duplicate()
	st.Published()

	got := FormatStats(st.Snapshot())
	for _, want := range []string{"Collected: 2", "Duplicates dropped: 1", "Published: 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats %q missing %q", got, want)
		}
	}
}
