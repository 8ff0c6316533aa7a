// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken  string
	TelegramChannelID int64
	ModerationChatID  int64
	DatabasePath      string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	OllamaBaseURL     string
	OllamaModel       string
	TargetLanguage    string
	RSSFeeds          []string
	RedditSubs        []string
	AllowedUsers      []int64
	LogLevel          string

	MinRelevanceScore float64
	MaxPostsPerHour   int
	Workers           int
	AIConcurrency     int
	AITimeout         time.Duration
	AIRetryBackoff    time.Duration
	DedupHorizon      time.Duration
	ResidencyWindow   time.Duration
	CollectInterval   time.Duration
	ModerationPoll    time.Duration
	PublishTick       time.Duration
	SweepInterval     time.Duration
	IntakeBuffer      int
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	channelID, err := envInt64("TELEGRAM_CHANNEL_ID", 0)
	if err != nil {
		return nil, err
	}
	if channelID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHANNEL_ID is required")
	}

	moderationChat, err := envInt64("MODERATION_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	if moderationChat == 0 {
		return nil, fmt.Errorf("MODERATION_CHAT_ID is required")
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	minScore, err := envFloat("MIN_RELEVANCE_SCORE", 0.3)
	if err != nil {
		return nil, err
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("MIN_RELEVANCE_SCORE must be in [0,1], got %v", minScore)
	}
	maxPosts, err := envInt("MAX_POSTS_PER_HOUR", 5)
	if err != nil {
		return nil, err
	}
	workers, err := envInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}
	aiConc, err := envInt("AI_CONCURRENCY", 2)
	if err != nil {
		return nil, err
	}
	intakeBuffer, err := envInt("INTAKE_BUFFER", 256)
	if err != nil {
		return nil, err
	}

	aiTimeout, err := envDuration("AI_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	aiBackoff, err := envDuration("AI_RETRY_BACKOFF", 2*time.Second)
	if err != nil {
		return nil, err
	}
	dedupHorizon, err := envDuration("DEDUP_HORIZON", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	residency, err := envDuration("RESIDENCY_WINDOW", 72*time.Hour)
	if err != nil {
		return nil, err
	}
	collectInterval, err := envDuration("COLLECT_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	moderationPoll, err := envDuration("MODERATION_POLL", 20*time.Second)
	if err != nil {
		return nil, err
	}
	if moderationPoll > 30*time.Second {
		return nil, fmt.Errorf("MODERATION_POLL must not exceed 30s, got %v", moderationPoll)
	}
	publishTick, err := envDuration("PUBLISH_TICK", time.Minute)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := envDuration("SWEEP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	allowedUsers, err := envInt64List("ALLOWED_USERS")
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken:  token,
		TelegramChannelID: channelID,
		ModerationChatID:  moderationChat,
		DatabasePath:      envOr("DATABASE_PATH", "./data/newspipe.db"),
		RedisAddr:         envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		OllamaBaseURL:     envOr("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:       envOr("OLLAMA_MODEL", "llama2"),
		TargetLanguage:    envOr("TARGET_LANG", "russian"),
		RSSFeeds:          envList("RSS_FEEDS"),
		RedditSubs:        envList("REDDIT_SUBREDDITS"),
		AllowedUsers:      allowedUsers,
		LogLevel:          envOr("LOG_LEVEL", "info"),
		MinRelevanceScore: minScore,
		MaxPostsPerHour:   maxPosts,
		Workers:           workers,
		AIConcurrency:     aiConc,
		AITimeout:         aiTimeout,
		AIRetryBackoff:    aiBackoff,
		DedupHorizon:      dedupHorizon,
		ResidencyWindow:   residency,
		CollectInterval:   collectInterval,
		ModerationPoll:    moderationPoll,
		PublishTick:       publishTick,
		SweepInterval:     sweepInterval,
		IntakeBuffer:      intakeBuffer,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envInt64(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envInt64List(key string) ([]int64, error) {
	var out []int64
	for _, s := range envList(key) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q in %s: %w", s, key, err)
		}
		out = append(out, v)
	}
	return out, nil
}
