package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/novel-engine/internal/config"
	"github.com/jwebster45206/novel-engine/internal/handlers"
	"github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/internal/middleware"
	"github.com/jwebster45206/novel-engine/internal/storage"
	"github.com/jwebster45206/novel-engine/pkg/reveal"
	pkgstorage "github.com/jwebster45206/novel-engine/pkg/storage"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Novel Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage", cfg.Storage)

	var store pkgstorage.Store
	switch cfg.Storage {
	case config.StorageRedis:
		redisStore, err := storage.NewRedisStore(cfg.RedisURL, cfg.DataDir, log)
		if err != nil {
			log.Error("Failed to create Redis store", "error", err)
			os.Exit(1)
		}

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = redisStore.WaitForConnection(waitCtx)
		waitCancel()
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store = redisStore

	case config.StorageSQLite:
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLitePath, cfg.DataDir, log)
		if err != nil {
			log.Error("Failed to open SQLite store", "error", err)
			os.Exit(1)
		}
		store = sqliteStore
	}
	log.Info("Storage connection established")

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	storyHandler := handlers.NewStoryHandler(store, log)
	mux.Handle("/v1/stories", storyHandler)
	mux.Handle("/v1/stories/", storyHandler)

	sessionHandler := handlers.NewSessionHandler(store, reveal.ParseSpeed(cfg.TextSpeed), log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
