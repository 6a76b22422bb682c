package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"weather-api/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// Open returns a pinged pool for the configured sqlite database. With
// SQLiteLogSQL set, statements go through the logging connector.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.SQLiteLogSQL {
		connector, err := NewLoggingConnector(dsn, logger, cfg.SQLiteSlowQuery)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(driverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.SQLiteMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.SQLiteMaxOpenConns)
	}
	if cfg.SQLiteMaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.SQLiteMaxIdleConns)
	}
	if cfg.SQLiteConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.SQLiteConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.SQLiteDSN != "" {
		return cfg.SQLiteDSN, nil
	}

	path := cfg.SQLitePath
	if path == "" {
		return "", fmt.Errorf("sqlite path is empty")
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	// Physical connections start in WAL with a busy timeout; the remaining
	// session pragmas are reapplied on every Acquire.
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
