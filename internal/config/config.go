package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	SQLitePath            string
	SQLiteDSN             string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool
	SQLiteSlowQuery       time.Duration

	UpstreamBaseURL         string
	UpstreamTimeout         time.Duration
	UpstreamBreakerFailures int
	UpstreamBreakerCooldown time.Duration

	// MQTTBroker empty disables reading notifications.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

func LoadFromEnv() (Config, error) {
	appEnv := envOr("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := envDuration("HTTP_READ_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	writeTimeout, err := envDuration("HTTP_WRITE_TIMEOUT", "30s")
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "4")
	if err != nil {
		return Config{}, err
	}
	if maxOpenConns < 1 {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %d (must be >= 1)", maxOpenConns)
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "4")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}
	logSQL, err := envBool("DB_LOG_SQL", "false")
	if err != nil {
		return Config{}, err
	}
	slowQuery, err := envDuration("DB_SLOW_QUERY", "200ms")
	if err != nil {
		return Config{}, err
	}

	upstreamBaseURL := strings.TrimRight(envOr("UPSTREAM_BASE_URL", "https://api.open-meteo.com"), "/")
	if err := validateBaseURL(upstreamBaseURL); err != nil {
		return Config{}, err
	}
	upstreamTimeout, err := envDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return Config{}, err
	}
	if upstreamTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT %s (must be > 0)", upstreamTimeout)
	}

	breakerFailures, err := envInt("UPSTREAM_BREAKER_FAILURES", "5")
	if err != nil {
		return Config{}, err
	}
	if breakerFailures < 0 {
		return Config{}, fmt.Errorf("invalid UPSTREAM_BREAKER_FAILURES %d (must be >= 0)", breakerFailures)
	}
	breakerCooldown, err := envDuration("UPSTREAM_BREAKER_COOLDOWN", "30s")
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:                  appEnv,
		LogLevel:                level,
		HTTPAddr:                envOr("HTTP_ADDR", ":8080"),
		HTTPReadTimeout:         readTimeout,
		HTTPWriteTimeout:        writeTimeout,
		SQLitePath:              envOr("SQLITE_PATH", "data/weather.db"),
		SQLiteDSN:               envOr("SQLITE_DSN", ""),
		SQLiteMaxOpenConns:      maxOpenConns,
		SQLiteMaxIdleConns:      maxIdleConns,
		SQLiteConnMaxLifetime:   connMaxLifetime,
		SQLiteLogSQL:            logSQL,
		SQLiteSlowQuery:         slowQuery,
		UpstreamBaseURL:         upstreamBaseURL,
		UpstreamTimeout:         upstreamTimeout,
		UpstreamBreakerFailures: breakerFailures,
		UpstreamBreakerCooldown: breakerCooldown,
		MQTTBroker:              envOr("MQTT_BROKER", ""),
		MQTTPort:                mqttPort,
		MQTTClientID:            envOr("MQTT_CLIENT_ID", "weather-api"),
		MQTTTopic:               strings.TrimRight(envOr("MQTT_TOPIC", "weather/readings"), "/"),
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func validateBaseURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_BASE_URL %q: %w", s, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid UPSTREAM_BASE_URL %q (expected absolute http(s) URL)", s)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
