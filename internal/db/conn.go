package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// sessionPragmas are applied each time a connection is handed to a request.
var sessionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Acquire takes one connection out of the pool for the caller's exclusive
// use and configures it. The caller must Close it to return it to the pool.
// Pragma failures are logged and ignored; some engines (in-memory
// databases, read-only files) reject journal changes.
func Acquire(ctx context.Context, db *sql.DB) (*sql.Conn, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("db acquire: %w", err)
	}
	for _, p := range sessionPragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			slog.Debug("pragma not applied", "pragma", p, "error", err)
		}
	}
	return conn, nil
}
