package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/hearth-engine/pkg/presenter"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	LogFile     string

	RedisURL    string
	SaveID      string
	ContentPath string

	InteractionRange    float64
	HoverSelectDelay    time.Duration
	SelectFeedbackDelay time.Duration
	ClickFeedbackDelay  time.Duration
}

func Load() (*Config, error) {
	defaults := presenter.DefaultConfig()
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:     getEnv("LOG_FILE", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		SaveID:      getEnv("SAVE_ID", "local"),
		ContentPath: getEnv("CONTENT_PATH", "./data/village.yaml"),
	}

	var err error
	if cfg.InteractionRange, err = getFloat("INTERACTION_RANGE", defaults.InteractionRange); err != nil {
		return nil, err
	}
	if cfg.HoverSelectDelay, err = getDuration("HOVER_SELECT_DELAY", defaults.HoverSelectDelay); err != nil {
		return nil, err
	}
	if cfg.SelectFeedbackDelay, err = getDuration("SELECT_FEEDBACK_DELAY", defaults.SelectFeedbackDelay); err != nil {
		return nil, err
	}
	if cfg.ClickFeedbackDelay, err = getDuration("CLICK_FEEDBACK_DELAY", defaults.ClickFeedbackDelay); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PresenterConfig returns the menu timings and range for the presenter.
func (c *Config) PresenterConfig() presenter.Config {
	return presenter.Config{
		InteractionRange:    c.InteractionRange,
		HoverSelectDelay:    c.HoverSelectDelay,
		SelectFeedbackDelay: c.SelectFeedbackDelay,
		ClickFeedbackDelay:  c.ClickFeedbackDelay,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, raw)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative duration", key, raw)
	}
	return d, nil
}
