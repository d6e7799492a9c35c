package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dwcheck/internal/application"
	"github.com/JonMunkholm/dwcheck/internal/config"
	"github.com/JonMunkholm/dwcheck/internal/core"
	_ "github.com/JonMunkholm/dwcheck/internal/core/tables" // Register all table kinds
	"github.com/JonMunkholm/dwcheck/internal/logging"
	"github.com/JonMunkholm/dwcheck/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"taxonomy_enabled", cfg.Taxonomy.Enabled,
		"collision_policy", cfg.Linkage.CollisionPolicy,
	)
	slog.Info("table kinds registered", "count", len(core.All()))

	runner := application.NewRunner(cfg)
	server := web.NewServer(runner)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
