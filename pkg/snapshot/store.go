package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fulmenhq/metaguard/pkg/metadata"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_properties (
	org           TEXT NOT NULL,
	type          TEXT NOT NULL,
	full_name     TEXT NOT NULL,
	cache_path    TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL,
	recorded_at   TEXT NOT NULL,
	PRIMARY KEY (org, type, full_name)
);`

// RecordedEntry is one stored timestamp.
type RecordedEntry struct {
	Type         string
	FullName     string
	CachePath    string
	LastModified time.Time
	RecordedAt   time.Time
}

// Store persists the remote timestamps seen at the last sync per org.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the timestamp database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	// Single writer connection for SQLite
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record upserts the given remote properties for org in one transaction.
func (s *Store) Record(ctx context.Context, org string, props []RemoteEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO file_properties (org, type, full_name, cache_path, last_modified, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (org, type, full_name) DO UPDATE SET
	cache_path = excluded.cache_path,
	last_modified = excluded.last_modified,
	recorded_at = excluded.recorded_at`)
	if err != nil {
		return fmt.Errorf("prepare record: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	recordedAt := s.now().UTC().Format(time.RFC3339Nano)
	for _, p := range props {
		if _, err := stmt.ExecContext(ctx, org, p.Type, p.FullName, p.CachePath,
			p.LastModified.UTC().Format(time.RFC3339Nano), recordedAt); err != nil {
			return fmt.Errorf("record %s: %w", metadata.Key(p.Type, p.FullName), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Lookup returns the recorded timestamps for the requested keys. Keys with no
// record are absent from the result.
func (s *Store) Lookup(ctx context.Context, org string, keys []string) (map[string]time.Time, error) {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	entries, err := s.List(ctx, org)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time)
	for _, e := range entries {
		key := metadata.Key(e.Type, e.FullName)
		if _, ok := want[key]; ok {
			out[key] = e.LastModified
		}
	}
	return out, nil
}

// List returns every stored entry for org ordered by type and name.
func (s *Store) List(ctx context.Context, org string) ([]RecordedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT type, full_name, cache_path, last_modified, recorded_at
FROM file_properties WHERE org = ? ORDER BY type, full_name`, org)
	if err != nil {
		return nil, fmt.Errorf("query recorded properties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []RecordedEntry
	for rows.Next() {
		var e RecordedEntry
		var lastModified, recordedAt string
		if err := rows.Scan(&e.Type, &e.FullName, &e.CachePath, &lastModified, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan recorded properties: %w", err)
		}
		if e.LastModified, err = time.Parse(time.RFC3339Nano, lastModified); err != nil {
			return nil, fmt.Errorf("parse last_modified for %s: %w", e.FullName, err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at for %s: %w", e.FullName, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
