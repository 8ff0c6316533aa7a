package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"newspipe/internal/ai"
	"newspipe/internal/bot"
	"newspipe/internal/collector"
	"newspipe/internal/config"
	"newspipe/internal/dedup"
	"newspipe/internal/model"
	"newspipe/internal/moderator"
	"newspipe/internal/pipeline"
	"newspipe/internal/publish"
	"newspipe/internal/queue"
	"newspipe/internal/relevance"
	"newspipe/internal/stats"
	"newspipe/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()

	sharedQueue, err := queue.NewRedis(ctx, redisClient)
	if err != nil {
		log.Error("connect redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	modQueue := queue.NewResilient(sharedQueue, cfg.IntakeBuffer, log)

	dedupper := dedup.New(dedup.NewRedisSeen(redisClient), cfg.DedupHorizon)
	scorer := relevance.New(relevance.DefaultVocabulary(), cfg.MinRelevanceScore)

	ollama := ai.NewOllama(http.DefaultClient, cfg.OllamaBaseURL, cfg.OllamaModel)
	if err := ollama.Health(ctx); err != nil {
		// Not fatal: the router degrades to the fast path while the
		// backend is down.
		log.Warn("ai backend unreachable", "url", cfg.OllamaBaseURL, "error", err)
	}
	adapter := ai.NewAdapter(ollama, cfg.AITimeout, cfg.AIRetryBackoff, cfg.AIConcurrency, log)
	router := pipeline.NewRouter(model.Language(cfg.TargetLanguage), adapter, scorer, log)

	st := &stats.Stats{}
	pipe := pipeline.New(dedupper, scorer, router, store, modQueue, st, cfg.Workers, log)

	collectors := make([]collector.Collector, 0, len(cfg.RSSFeeds)+len(cfg.RedditSubs))
	for _, url := range cfg.RSSFeeds {
		collectors = append(collectors, collector.NewRSS(http.DefaultClient, feedName(url), url))
	}
	for _, sub := range cfg.RedditSubs {
		collectors = append(collectors, collector.NewReddit(http.DefaultClient, sub))
	}
	intake := make(chan model.RawItem, cfg.IntakeBuffer)
	runner := collector.NewRunner(collectors, intake, cfg.CollectInterval, log)

	channelAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Error("create telegram api", "error", err)
		os.Exit(1)
	}
	sink := publish.NewTelegram(channelAPI, cfg.TelegramChannelID)
	scheduler := publish.NewScheduler(sink, store, modQueue, st, cfg.MaxPostsPerHour, cfg.ResidencyWindow, cfg.PublishTick, log)

	b, err := bot.New(cfg.TelegramBotToken, scheduler, modQueue, st, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}
	consumer := moderator.NewConsumer(modQueue, b, scheduler, cfg.ModerationPoll, cfg.ResidencyWindow, log)
	b.SetDecider(consumer)

	log.Info("starting newspipe",
		"feeds", len(collectors),
		"workers", cfg.Workers,
		"max_posts_per_hour", cfg.MaxPostsPerHour,
	)

	go runner.Run(ctx)
	go pipe.Run(ctx, intake)
	go modQueue.Run(ctx, cfg.SweepInterval)
	go scheduler.Run(ctx)
	go scheduler.RunSweeps(ctx, cfg.SweepInterval)
	go consumer.Run(ctx)

	b.Run(ctx)

	log.Info("newspipe stopped")
}

// feedName derives a readable source name from a feed URL.
func feedName(url string) string {
	name := strings.TrimPrefix(url, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.TrimPrefix(name, "www.")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return name
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
