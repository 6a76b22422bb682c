package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"weather-api/internal/config"
	"weather-api/internal/db"
	"weather-api/internal/migrate"
	"weather-api/internal/modules/weather/export"
	"weather-api/internal/modules/weather/repository"
	"weather-api/internal/modules/weather/types"
)

const usage = `usage: %s <command>
  migrate                  apply pending schema migrations
  export <city> [limit]    write the most recent readings as CSV to stdout
`

const defaultExportLimit = 100

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries CSV, so logs go to stderr.
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: cfg.LogLevel, TimeFormat: time.Kitchen}))

	if err := run(context.Background(), cfg, logger, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	switch args[0] {
	case "migrate":
		return withConn(ctx, cfg, logger, func(conn *sql.Conn) error {
			n, err := migrate.Run(ctx, conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%d migration(s) applied\n", n)
			return nil
		})
	case "export":
		city, limit, err := parseExportArgs(args[1:])
		if err != nil {
			return err
		}
		return withConn(ctx, cfg, logger, func(conn *sql.Conn) error {
			readings, err := repository.RecentReadings(ctx, conn, city, limit)
			if err != nil {
				return err
			}
			if len(readings) == 0 {
				return fmt.Errorf("%w: no readings for city %q", types.ErrNotFound, city)
			}
			return export.WriteCSV(stdout, readings)
		})
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func parseExportArgs(args []string) (string, int, error) {
	var city string
	if len(args) > 0 {
		city = strings.TrimSpace(args[0])
	}
	if city == "" {
		return "", 0, errors.New("city is required")
	}
	limit := defaultExportLimit
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > 1000 {
			return "", 0, fmt.Errorf("invalid limit %q (expected integer in 1..1000)", args[1])
		}
		limit = n
	}
	return city, limit, nil
}

func withConn(ctx context.Context, cfg config.Config, logger *slog.Logger, fn func(*sql.Conn) error) error {
	pool, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(pool); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	conn, err := db.Acquire(ctx, pool)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}
