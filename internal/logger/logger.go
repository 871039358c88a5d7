package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/hearth-engine/internal/config"
)

// Setup configures the global slog logger based on environment. Output goes
// to LOG_FILE when set, otherwise to w. The returned closer releases the log
// file and is safe to call when no file was opened.
func Setup(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	closer := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = f.Close
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closer, nil
}

// WithSave tags log lines with the save slot.
func WithSave(logger *slog.Logger, saveID string) *slog.Logger {
	return logger.With("save_id", saveID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
