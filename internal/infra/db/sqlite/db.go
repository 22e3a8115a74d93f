// Package sqlite implements the persistence store on modernc.org/sqlite
// (pure Go, no cgo). The authoritative copy lives in memory; a snapshot is
// flushed to disk on a fixed interval and once more on shutdown, so a crash
// between two flushes loses the writes of that window.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/exewatch/internal/domain/archive"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	client_label   TEXT NOT NULL,
	status         TEXT NOT NULL CHECK (status IN ('ACTIVE','DONE','ERROR')),
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER,
	total_files    INTEGER NOT NULL DEFAULT 0,
	suspect_count  INTEGER NOT NULL DEFAULT 0,
	critical_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	filename    TEXT NOT NULL,
	path        TEXT NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('OK','SUSPECT')),
	severity    TEXT NOT NULL CHECK (severity IN ('LOW','MEDIUM','HIGH','CRITICAL')),
	detected_at INTEGER NOT NULL,
	type        TEXT NOT NULL DEFAULT '',
	hash        TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	reviewed    INTEGER NOT NULL DEFAULT 0,
	reviewed_at INTEGER
);

CREATE TABLE IF NOT EXISTS logs (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	level      TEXT NOT NULL CHECK (level IN ('INFO','WARN','ERROR')),
	message    TEXT NOT NULL,
	timestamp  INTEGER NOT NULL,
	context    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sessions_status  ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_results_session  ON results(session_id);
CREATE INDEX IF NOT EXISTS idx_results_severity ON results(severity);
CREATE INDEX IF NOT EXISTS idx_results_reviewed ON results(reviewed);
CREATE INDEX IF NOT EXISTS idx_logs_session     ON logs(session_id);
CREATE INDEX IF NOT EXISTS idx_logs_level       ON logs(level);
`

// DB owns the in-memory database and its snapshot path. All repositories
// share the single underlying connection, which also serializes concurrent
// writers and keeps flushes to a short exclusive window.
type DB struct {
	db           *sql.DB
	snapshotPath string
}

// Open creates the in-memory database, applies the schema, and restores the
// previous snapshot if one exists. An empty snapshotPath disables
// persistence entirely.
func Open(snapshotPath string) (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection only: every pool connection would otherwise get its own
	// private :memory: database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	d := &DB{db: db, snapshotPath: snapshotPath}
	if snapshotPath != "" {
		if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
		if _, err := os.Stat(snapshotPath); err == nil {
			if err := d.restore(); err != nil {
				db.Close()
				return nil, err
			}
			slog.Info("database restored from snapshot", "path", snapshotPath)
		}
	}
	return d, nil
}

// restore copies rows from the snapshot file into the in-memory tables.
func (d *DB) restore() error {
	if _, err := d.db.Exec(`ATTACH DATABASE ? AS snap`, d.snapshotPath); err != nil {
		return fmt.Errorf("sqlite: attach snapshot: %w", err)
	}
	defer d.db.Exec(`DETACH DATABASE snap`)

	for _, table := range []string{"sessions", "results", "logs"} {
		var n int
		err := d.db.QueryRow(
			`SELECT COUNT(*) FROM snap.sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("sqlite: inspect snapshot: %w", err)
		}
		if n == 0 {
			continue
		}
		if _, err := d.db.Exec(
			fmt.Sprintf(`INSERT INTO main.%s SELECT * FROM snap.%s`, table, table),
		); err != nil {
			return fmt.Errorf("sqlite: restore %s: %w", table, err)
		}
	}
	return nil
}

// Flush writes a consistent snapshot next to the target path and renames it
// into place. VACUUM INTO runs on the single shared connection, so writers
// queue behind it for the duration of the copy.
func (d *DB) Flush(ctx context.Context) error {
	if d.snapshotPath == "" {
		return nil
	}
	tmp := d.snapshotPath + ".tmp"
	// VACUUM INTO refuses to overwrite an existing file.
	_ = os.Remove(tmp)

	if _, err := d.db.ExecContext(ctx, `VACUUM INTO ?`, tmp); err != nil {
		return fmt.Errorf("sqlite: vacuum into snapshot: %w", err)
	}
	if err := os.Rename(tmp, d.snapshotPath); err != nil {
		return fmt.Errorf("sqlite: replace snapshot: %w", err)
	}
	return nil
}

// AutoFlush runs the periodic snapshot loop until ctx is canceled. When an
// archive store is configured, each successful flush is also uploaded.
// Intended to run in its own goroutine; it is the process's only background
// task.
func (d *DB) AutoFlush(ctx context.Context, interval time.Duration, arch archive.Store, archivePrefix string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Flush(ctx); err != nil {
				slog.Error("periodic flush failed", "error", err)
				continue
			}
			if arch != nil {
				key := fmt.Sprintf("%s/%s-%s", archivePrefix,
					filepath.Base(d.snapshotPath), time.Now().UTC().Format("20060102T150405Z"))
				if _, err := arch.Upload(ctx, d.snapshotPath, key); err != nil {
					slog.Error("snapshot archive upload failed", "key", key, "error", err)
				}
			}
		}
	}
}

// Ping reports store liveness for the health endpoint.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close flushes one final snapshot and releases the connection.
func (d *DB) Close() error {
	if err := d.Flush(context.Background()); err != nil {
		slog.Error("final flush failed", "error", err)
	}
	return d.db.Close()
}
