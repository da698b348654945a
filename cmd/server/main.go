package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trecks/internal/server/api"
	"trecks/internal/server/auth"
	"trecks/internal/server/catalog"
	"trecks/internal/server/config"
	"trecks/internal/server/database"
	"trecks/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"storage_path", cfg.StoragePath,
		"max_file_size", cfg.MaxFileSize,
		"session_backend", cfg.SessionBackend,
		"session_ttl", cfg.SessionTTL,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize storage
	store := storage.NewFileSystemStore(cfg.StoragePath)
	if err := store.EnsureDir(); err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	slog.Info("file storage initialized", "path", cfg.StoragePath)

	// Session store backend
	var sessions auth.Store
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		sessions = auth.NewRedisStore(client)
		slog.Info("redis session store initialized", "addr", cfg.RedisAddr)
	default:
		sessions = auth.NewMemoryStore()
		slog.Info("in-memory session store initialized")
	}

	// Initialize repositories and services
	userRepo := database.NewUserRepository(db)
	trackRepo := database.NewTrackRepository(db)
	authSvc := auth.NewService(userRepo, sessions, cfg.RegistrationCode, cfg.SessionTTL)
	catalogSvc := catalog.NewService(trackRepo, store, cfg.MaxFileSize)

	// Start session sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	sweeper := auth.NewSweeper(sessions, cfg.SessionSweep)
	sweeper.Start(sweepCtx)

	// Setup HTTP router
	handler := api.NewHandler(authSvc, catalogSvc, db, cfg.SessionSecret)
	e := api.SetupRouter(handler, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop session sweeper
	sweepCancel()
	sweeper.Wait()

	slog.Info("server exited cleanly")
}
