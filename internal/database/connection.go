package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB wraps the sqlx connection shared by all repositories
type DB struct {
	*sqlx.DB
}

// Open establishes a connection to the database and applies the schema
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			// Create data directory if it doesn't exist
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		conn.SetMaxIdleConns(1)
	}

	db := &DB{DB: conn}
	if err := db.initializeSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS catalog_lists (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	entry_count INTEGER NOT NULL DEFAULT 0,
	is_priority BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_entries (
	id              TEXT PRIMARY KEY,
	list_id         TEXT NOT NULL,
	sequence_number INTEGER NOT NULL,
	term            TEXT NOT NULL,
	definition      TEXT NOT NULL,
	search_key      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_entries_list ON catalog_entries(list_id, sequence_number);
CREATE INDEX IF NOT EXISTS idx_catalog_entries_search ON catalog_entries(search_key);

CREATE TABLE IF NOT EXISTS user_progress (
	user_id         TEXT NOT NULL,
	list_id         TEXT NOT NULL,
	last_studied_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, list_id)
);

CREATE TABLE IF NOT EXISTS learned_entries (
	user_id    TEXT NOT NULL,
	list_id    TEXT NOT NULL,
	entry_id   TEXT NOT NULL,
	learned_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, list_id, entry_id)
);

CREATE TABLE IF NOT EXISTS attempt_history (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	list_id            TEXT NOT NULL,
	list_title         TEXT NOT NULL,
	mode               TEXT NOT NULL,
	correct_count      INTEGER NOT NULL,
	total_count        INTEGER NOT NULL,
	mastered_entry_ids TEXT NOT NULL DEFAULT '[]',
	completed_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempt_history_user ON attempt_history(user_id, completed_at);
`

// initializeSchema creates necessary tables if they don't exist
func (db *DB) initializeSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
