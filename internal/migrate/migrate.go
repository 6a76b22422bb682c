// Package migrate applies the embedded schema migrations. Files are named
// with a 4-digit version prefix (0001_readings.sql) and applied in order,
// each inside its own transaction, with applied versions recorded in
// schema_migrations. Running it again is a no-op.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const (
	migrationsDir = "sql"
	tableName     = "schema_migrations"
)

var migrationFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Conn is satisfied by *sql.DB and *sql.Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type migration struct {
	version string
	name    string
	body    string
}

// Run returns the number of migrations applied by this call.
func Run(ctx context.Context, conn Conn) (int, error) {
	if err := ensureMigrationsTable(ctx, conn); err != nil {
		return 0, fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return 0, fmt.Errorf("list applied migrations: %w", err)
	}

	pending, err := pendingMigrations(sqlFS, applied)
	if err != nil {
		return 0, err
	}

	for i, m := range pending {
		if err := apply(ctx, conn, m); err != nil {
			return i, fmt.Errorf("apply %s_%s.sql: %w", m.version, m.name, err)
		}
		slog.Info("migration applied", "version", m.version, "name", m.name)
	}
	return len(pending), nil
}

func pendingMigrations(fsys fs.FS, applied map[string]bool) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var pending []migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseMigrationFilename(e.Name())
		if !ok || applied[version] {
			continue
		}
		body, err := fs.ReadFile(fsys, migrationsDir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		pending = append(pending, migration{version: version, name: name, body: string(body)})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })
	return pending, nil
}

func ensureMigrationsTable(ctx context.Context, conn Conn) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+tableName+` (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)
	`)
	return err
}

func appliedVersions(ctx context.Context, conn Conn) (map[string]bool, error) {
	rows, err := conn.QueryContext(ctx, "SELECT version FROM "+tableName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close migration rows", "error", err)
		}
	}()
	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func parseMigrationFilename(filename string) (version, name string, ok bool) {
	m := migrationFileRe.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// apply runs one migration. A concurrent process applying the same version
// is tolerated: the DDL is IF NOT EXISTS and the version insert is ignored.
func apply(ctx context.Context, conn Conn, m migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+tableName+" (version, name) VALUES (?, ?)",
		m.version, m.name,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
