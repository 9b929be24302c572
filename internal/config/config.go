package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"one-percent/internal/period"
)

// Config keeps runtime settings for the tracker.
type Config struct {
	TelegramToken  string
	TelegramChatID int64
	DatabaseURL    string
	ResetBoundary  period.Boundary
	CheckInterval  time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CheckInterval: parseSeconds(strings.TrimSpace(os.Getenv("RESET_CHECK_INTERVAL_SECONDS"))),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "one_percent.db"
	}

	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 60 * time.Second
	}

	boundary := strings.TrimSpace(os.Getenv("RESET_TIME"))
	if boundary == "" {
		cfg.ResetBoundary = period.Midnight
	} else {
		parsed, err := period.ParseBoundary(boundary)
		if err != nil {
			return cfg, fmt.Errorf("RESET_TIME: %w", err)
		}
		cfg.ResetBoundary = parsed
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	chatID := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	if chatID == "" {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	parsed, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
	}
	cfg.TelegramChatID = parsed

	return cfg, nil
}

func parseSeconds(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
