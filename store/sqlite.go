package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Sqlite backs every dao with a single sqlite database file
// (modernc.org/sqlite, pure Go, no cgo).
type Sqlite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	net_id      TEXT PRIMARY KEY,
	lms_user_id INTEGER NOT NULL DEFAULT 0,
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	repo_url    TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'STUDENT'
);

CREATE TABLE IF NOT EXISTS queue (
	net_id     TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	time_added TEXT NOT NULL,
	started    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS submissions (
	id               TEXT PRIMARY KEY,
	net_id           TEXT NOT NULL,
	phase            TEXT NOT NULL,
	repo_url         TEXT NOT NULL,
	head_hash        TEXT NOT NULL,
	timestamp        TEXT NOT NULL,
	score            REAL NOT NULL,
	passed           INTEGER NOT NULL,
	withheld         INTEGER NOT NULL,
	notes            TEXT NOT NULL,
	admin_submission INTEGER NOT NULL,
	rubric           TEXT NOT NULL,
	verification     TEXT
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_phase
	ON submissions (net_id, phase, timestamp);
`

// NewSqlite opens (or creates) the database file and applies the schema.
func NewSqlite(dbPath string) (*Sqlite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite supports one writer; a single connection serializes access
	// through the pool and avoids "database is locked" errors
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Sqlite{db: db}, nil
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
