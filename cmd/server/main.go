// Package main is the entry point for the event board server.
//
// The main package stays minimal — its job is to:
//  1. Load configuration (cleanenv: env vars, optionally a CONFIG_PATH file)
//  2. Create the logger
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server and below).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/event-board/internal/config"
	"github.com/sakif/event-board/internal/server"
)

func main() {
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// Development gets Debug; anything else starts at Info to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// Ensure the database directory exists (like `mkdir -p`).
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Default the OAuth callback to localhost for local development.
	if cfg.GitHubEnabled() && cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf(
			"http://localhost:%d/api/auth/github/callback", cfg.HTTPServer.Port,
		)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
