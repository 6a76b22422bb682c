package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"weather-api/internal/config"
	"weather-api/internal/db"
	"weather-api/internal/httpapi"
	"weather-api/internal/modules/weather"
	"weather-api/internal/modules/weather/repository"
	"weather-api/internal/modules/weather/service"
	"weather-api/internal/mqtt"
	"weather-api/internal/openmeteo"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Run serves the weather API until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"sqliteLogSQL", cfg.SQLiteLogSQL,
		"upstreamBaseURL", cfg.UpstreamBaseURL,
		"upstreamTimeout", cfg.UpstreamTimeout,
		"upstreamBreakerFailures", cfg.UpstreamBreakerFailures,
		"mqttBroker", cfg.MQTTBroker,
		"mqttTopic", cfg.MQTTTopic,
	)

	pool, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(pool); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := initSchema(ctx, pool); err != nil {
		return err
	}
	logger.Info("database ready")

	client, err := openmeteo.NewClient(openmeteo.Options{
		BaseURL:         cfg.UpstreamBaseURL,
		Timeout:         cfg.UpstreamTimeout,
		BreakerFailures: uint32(cfg.UpstreamBreakerFailures),
		BreakerCooldown: cfg.UpstreamBreakerCooldown,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	var publisher service.ReadingPublisher
	if cfg.MQTTBroker != "" {
		mqttPublisher := mqtt.NewPublisher(cfg, logger)
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := mqttPublisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without reading notifications)", "error", err)
		} else {
			publisher = mqttPublisher
		}
		defer mqttPublisher.Disconnect()
	}

	// The weather service doubles as the readiness probe.
	mux := http.NewServeMux()
	weatherService := weather.RegisterFeature(mux, pool, client, publisher, logger)
	httpapi.RegisterRoutes(mux, weatherService, logger)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

func initSchema(ctx context.Context, pool *sql.DB) error {
	conn, err := db.Acquire(ctx, pool)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	defer conn.Close()
	return repository.InitSchema(ctx, conn)
}
