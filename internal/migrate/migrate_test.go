package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func TestRun_CreatesReadingsTable(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n < 1 {
		t.Fatalf("applied = %d; want >= 1", n)
	}

	if _, err := db.Exec(`INSERT INTO readings (city, ts, temperature, humidity) VALUES ('Oslo', '2024-01-01T00:00:00Z', NULL, 50)`); err != nil {
		t.Fatalf("insert into readings: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO readings (city, ts) VALUES ('Oslo', '2024-01-01T00:00:00Z')`); err == nil {
		t.Fatal("expected unique violation on duplicate (city, ts)")
	}
}

func TestRun_Idempotent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if _, err := Run(ctx, db); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Fatalf("second Run applied %d; want 0", n)
	}

	var versions int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&versions); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	entries, _ := sqlFS.ReadDir(migrationsDir)
	if versions != len(entries) {
		t.Fatalf("recorded versions = %d; want %d", versions, len(entries))
	}
}

func TestRun_OnScopedConn(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := Run(ctx, conn); err != nil {
		t.Fatalf("Run on *sql.Conn: %v", err)
	}
}

func TestPendingMigrations_OrderAndFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_second.sql": {Data: []byte("SELECT 2;")},
		"sql/0001_first.sql":  {Data: []byte("SELECT 1;")},
		"sql/0003_third.sql":  {Data: []byte("SELECT 3;")},
		"sql/readme.txt":      {Data: []byte("not a migration")},
		"sql/01_short.sql":    {Data: []byte("bad prefix")},
	}

	got, err := pendingMigrations(fsys, map[string]bool{"0003": true})
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("pending = %d; want 2", len(got))
	}
	if got[0].version != "0001" || got[1].version != "0002" {
		t.Fatalf("order = %s,%s; want 0001,0002", got[0].version, got[1].version)
	}
	if got[0].name != "first" {
		t.Errorf("name = %q; want first", got[0].name)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{in: "0001_readings.sql", version: "0001", name: "readings", ok: true},
		{in: "0042_add_index.sql", version: "0042", name: "add_index", ok: true},
		{in: "1_x.sql", ok: false},
		{in: "0001_readings.txt", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseMigrationFilename(tt.in)
			if ok != tt.ok || v != tt.version || n != tt.name {
				t.Errorf("parseMigrationFilename(%q) = %q, %q, %v; want %q, %q, %v", tt.in, v, n, ok, tt.version, tt.name, tt.ok)
			}
		})
	}
}
