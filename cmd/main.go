package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"weather-api/internal/app"
	"weather-api/internal/config"
	"weather-api/internal/logging"
)

const appName = "weather-api"

// Overridden with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	logger.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("shut down")
}
