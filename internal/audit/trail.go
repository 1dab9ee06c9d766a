// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit provides a local, append-only activity trail for the
// console. Every client-initiated operation (learn, plan creation, chatbot
// test, emergency stop, config update) is recorded to a SQLite database so
// an operator can account for what the console did even when the backend
// audit log is unreachable.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/redconhq/redcon/internal/session"
)

// Schema for the activity trail.
const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id         TEXT PRIMARY KEY,
	timestamp  TEXT NOT NULL,
	operation  TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity(timestamp);
CREATE INDEX IF NOT EXISTS idx_activity_operation ON activity(operation);
`

// Entry is one recorded console action.
type Entry struct {
	ID        string
	Timestamp time.Time
	Operation string
	Detail    string
}

// Trail is the SQLite-backed activity recorder. It implements
// session.Recorder. All methods are safe for concurrent use.
type Trail struct {
	mu      sync.Mutex
	db      *sql.DB
	enabled bool
}

// DefaultPath returns the default database location, ~/.redcon/activity.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".redcon", "activity.db"), nil
}

// Open opens (creating if needed) the activity trail at path. retentionDays
// prunes entries older than that many days; zero keeps everything.
func Open(path string, retentionDays int) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	t := &Trail{db: db, enabled: true}

	if retentionDays > 0 {
		if err := t.prune(retentionDays); err != nil {
			db.Close()
			return nil, err
		}
	}

	return t, nil
}

// Close releases the database.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.db.Close()
}

// SetEnabled toggles recording. The backend safety config's
// log_all_activities flag is mirrored here: when the operator turns
// backend logging off, the local trail goes quiet too.
func (t *Trail) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Record writes one entry. It satisfies session.Recorder. Write failures
// are swallowed: the trail must never block or fail an operation.
func (t *Trail) Record(op session.Operation, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	_, _ = t.db.Exec(
		"INSERT INTO activity (id, timestamp, operation, detail) VALUES (?, ?, ?, ?)",
		uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(op),
		detail,
	)
}

// Recent returns up to limit entries, newest first.
func (t *Trail) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.db.Query(
		"SELECT id, timestamp, operation, detail FROM activity ORDER BY timestamp DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Operation, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded entries.
func (t *Trail) Count() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n int
	err := t.db.QueryRow("SELECT COUNT(*) FROM activity").Scan(&n)
	return n, err
}

// prune removes entries older than retentionDays.
func (t *Trail) prune(retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339Nano)
	_, err := t.db.Exec("DELETE FROM activity WHERE timestamp < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune activity trail: %w", err)
	}
	return nil
}
