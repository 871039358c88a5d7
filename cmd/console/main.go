package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/hearth-engine/internal/config"
	"github.com/jwebster45206/hearth-engine/internal/logger"
	"github.com/jwebster45206/hearth-engine/internal/services/events"
	"github.com/jwebster45206/hearth-engine/internal/storage"
	"github.com/jwebster45206/hearth-engine/pkg/content"
	"github.com/jwebster45206/hearth-engine/pkg/state"
)

func main() {
	fresh := flag.Bool("fresh", false, "wipe the save slot before playing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI; logs go to LOG_FILE or nowhere.
	log, closeLog, err := logger.Setup(cfg, io.Discard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeLog() // Ignore error in defer
	}()
	log = logger.WithSave(log, cfg.SaveID)

	bundle, err := content.Load(cfg.ContentPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load content: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	deps, cleanup, err := connect(ctx, cfg, *fresh, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open save slot: %v\nStart Redis, or unset REDIS_URL to play without saving\n", err)
		os.Exit(1)
	}
	defer cleanup()

	game, err := newSession(ctx, bundle, deps, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start village: %v\n", err)
		os.Exit(1)
	}
	defer game.close()

	log.Info("Village started", "content", bundle.FileName, "npcs", game.npcs.Len())

	p := tea.NewProgram(NewConsoleUI(game, cfg.SaveID),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// connect opens the save slot. With REDIS_URL set the slot lives in Redis
// and every dialogue action and shared event is published; otherwise the
// village runs on an in-memory store.
func connect(ctx context.Context, cfg *config.Config, fresh bool, log *slog.Logger) (sessionDeps, func(), error) {
	deps := sessionDeps{
		Presenter: cfg.PresenterConfig(),
		Logger:    log,
	}
	if cfg.RedisURL == "" {
		mem := state.NewMemoryStore()
		deps.Store, deps.Globals = mem, mem
		log.Info("No REDIS_URL set, playing without a save")
		return deps, func() {}, nil
	}

	store, err := storage.NewRedisStore(cfg.RedisURL, cfg.SaveID, log)
	if err != nil {
		return deps, nil, err
	}
	if err := store.WaitForConnection(ctx, 5, 500*time.Millisecond); err != nil {
		_ = store.Close()
		return deps, nil, err
	}
	log.Info("Connected to Redis")
	if fresh {
		if err := store.Reset(ctx); err != nil {
			_ = store.Close()
			return deps, nil, fmt.Errorf("failed to reset save %s: %w", cfg.SaveID, err)
		}
		log.Info("Save slot wiped")
	}

	broadcaster := events.NewBroadcaster(store.Client(), cfg.SaveID, log)
	deps.Store = store
	deps.Globals = events.NewPublishingGlobals(store, broadcaster)
	deps.Notifier = broadcaster
	return deps, func() { _ = store.Close() }, nil
}
