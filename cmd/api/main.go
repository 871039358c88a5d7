package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/hearth-engine/internal/config"
	"github.com/jwebster45206/hearth-engine/internal/handlers"
	"github.com/jwebster45206/hearth-engine/internal/logger"
	"github.com/jwebster45206/hearth-engine/internal/middleware"
	"github.com/jwebster45206/hearth-engine/internal/storage"
	"github.com/jwebster45206/hearth-engine/pkg/content"
	"github.com/jwebster45206/hearth-engine/pkg/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logger.Setup(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeLog()
	}()
	log = logger.WithSave(log, cfg.SaveID)

	log.Info("Starting Hearth Engine preview API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"content", cfg.ContentPath)

	bundle, err := content.Load(cfg.ContentPath)
	if err != nil {
		log.Error("Failed to load content", "error", err)
		os.Exit(1)
	}
	npcs, err := bundle.BuildDirectory(time.Now())
	if err != nil {
		log.Error("Invalid NPC content", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	var store state.Store
	var globals state.GlobalEvents
	var pinger handlers.Pinger
	var redisStore *storage.RedisStore
	if cfg.RedisURL == "" {
		mem := state.NewMemoryStore()
		store, globals = mem, mem
		log.Info("No REDIS_URL set, previewing against an empty save")
	} else {
		redisStore, err = storage.NewRedisStore(cfg.RedisURL, cfg.SaveID, log)
		if err != nil {
			log.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = redisStore.WaitForConnection(storageCtx, 10, time.Second)
		storageCancel()
		if err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		log.Info("Storage connection established successfully")
		store, globals, pinger = redisStore, redisStore, redisStore

		eventsHandler := handlers.NewEventsHandler(redisStore.Client(), log)
		mux.Handle("/v1/events/", eventsHandler)
	}

	healthHandler := handlers.NewHealthHandler(pinger, npcs.Len(), log)
	mux.Handle("/health", healthHandler)

	npcHandler := handlers.NewNPCHandler(npcs, store, globals, bundle.StartingPoints(), log)
	mux.Handle("/v1/npcs", npcHandler)
	mux.Handle("/v1/npcs/", npcHandler)

	// Cancelled on shutdown so open event streams return.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open.
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}

	log.Info("Server exited")
}
