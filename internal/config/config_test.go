package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "LOG_FILE", "REDIS_URL", "SAVE_ID", "CONTENT_PATH",
		"INTERACTION_RANGE", "HOVER_SELECT_DELAY", "SELECT_FEEDBACK_DELAY", "CLICK_FEEDBACK_DELAY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "local", cfg.SaveID)
	assert.Equal(t, "./data/village.yaml", cfg.ContentPath)

	pc := cfg.PresenterConfig()
	assert.Equal(t, 2.5, pc.InteractionRange)
	assert.Equal(t, 700*time.Millisecond, pc.HoverSelectDelay)
	assert.Equal(t, 150*time.Millisecond, pc.SelectFeedbackDelay)
	assert.Equal(t, 100*time.Millisecond, pc.ClickFeedbackDelay)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("SAVE_ID", "slot2")
	t.Setenv("INTERACTION_RANGE", "3")
	t.Setenv("HOVER_SELECT_DELAY", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "redis://localhost:6379/2", cfg.RedisURL)
	assert.Equal(t, "slot2", cfg.SaveID)
	assert.Equal(t, 3.0, cfg.InteractionRange)
	assert.Equal(t, time.Second, cfg.HoverSelectDelay)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"range not a number", "INTERACTION_RANGE", "far"},
		{"range not positive", "INTERACTION_RANGE", "0"},
		{"hover delay", "HOVER_SELECT_DELAY", "700"},
		{"negative feedback", "SELECT_FEEDBACK_DELAY", "-1ms"},
		{"click delay", "CLICK_FEEDBACK_DELAY", "quick"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
