package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filegate/internal/server/api"
	"filegate/internal/server/bot"
	"filegate/internal/server/config"
	"filegate/internal/server/database"
	"filegate/internal/server/service"
	"filegate/internal/server/storage"
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
		"database_path", cfg.DatabasePath,
		"image_dir", cfg.ImageDir,
		"archive_dir", cfg.ArchiveDir,
		"bot_enabled", cfg.BotToken != "",
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations; a partially-initialized schema must never serve.
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize managed storage areas
	images := storage.NewManagedDir(cfg.ImageDir)
	archives := storage.NewManagedDir(cfg.ArchiveDir)
	for _, area := range []*storage.ManagedDir{images, archives} {
		if err := area.EnsureDir(); err != nil {
			slog.Error("failed to initialize storage", "error", err)
			os.Exit(1)
		}
	}

	// Initialize repository and services
	repo := database.NewRepository(db)
	authSvc := service.NewAuthService(repo)
	assetSvc := service.NewAssetService(repo, images, archives)

	// Seed the admin account on first run
	if err := authSvc.Bootstrap(ctx); err != nil {
		slog.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	// Make sure both settings slots exist
	if _, err := repo.EnsureSetting(ctx, service.SettingImageURL, service.DefaultImageURL); err != nil {
		slog.Error("failed to ensure image setting", "error", err)
		os.Exit(1)
	}
	if _, err := repo.EnsureSetting(ctx, service.SettingArchivePath, ""); err != nil {
		slog.Error("failed to ensure archive setting", "error", err)
		os.Exit(1)
	}

	// Start orphan cleanup
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cleanup := storage.NewCleanupService(
		[]*storage.ManagedDir{images, archives},
		assetSvc.ReferencedPaths,
		cfg.CleanupInterval,
	)
	cleanup.Start(cleanupCtx)

	// Start the Telegram bot when a token is configured
	botCtx, botCancel := context.WithCancel(context.Background())
	var tgBot *bot.Bot
	if cfg.BotToken != "" {
		tgBot, err = bot.New(cfg.BotToken, authSvc, assetSvc)
		if err != nil {
			slog.Error("failed to start telegram bot", "error", err)
			os.Exit(1)
		}
		tgBot.Start(botCtx)
	} else {
		slog.Info("telegram bot disabled, no token configured")
	}

	// Setup HTTP router
	handler := api.NewHandler(authSvc, assetSvc, db)
	e, err := api.SetupRouter(handler, cfg)
	if err != nil {
		slog.Error("failed to set up router", "error", err)
		os.Exit(1)
	}

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
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

	// Stop the bot and the cleanup service
	botCancel()
	if tgBot != nil {
		tgBot.Wait()
	}
	cleanupCancel()
	cleanup.Wait()

	slog.Info("server exited cleanly")
}
