package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datablocks/internal/domain"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite metadata database connection.
type DB struct {
	conn *sql.DB
}

// New creates a new DB, opening (or creating) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer, limit to a single connection to prevent SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// ExecContext runs a statement, reporting trigger rejections as
// domain.ErrImmutabilityViolation.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := db.conn.ExecContext(ctx, query, args...)
	return res, TranslateError(err)
}

// TranslateError maps immutability trigger aborts onto the domain error.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "immutable:") {
		return fmt.Errorf("%w: %v", domain.ErrImmutabilityViolation, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS schemas (
			key TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			fields_json TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS data_blocks (
			id TEXT PRIMARY KEY,
			expected_schema_key TEXT NOT NULL,
			realized_schema_key TEXT NOT NULL,
			record_count INTEGER,
			created_by TEXT NOT NULL DEFAULT '',
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS stored_data_blocks (
			id TEXT PRIMARY KEY,
			data_block_id TEXT NOT NULL REFERENCES data_blocks(id),
			storage_url TEXT NOT NULL,
			storage_type TEXT NOT NULL,
			data_format TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stored_data_blocks_realization
			ON stored_data_blocks(data_block_id, storage_url, data_format)`,
		`CREATE TABLE IF NOT EXISTS aliases (
			name TEXT PRIMARY KEY,
			data_block_id TEXT NOT NULL REFERENCES data_blocks(id),
			stored_data_block_id TEXT NOT NULL REFERENCES stored_data_blocks(id),
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// Lineage rows are append-only: only the soft-delete flag may change.
		`CREATE TRIGGER IF NOT EXISTS data_blocks_immutable
			BEFORE UPDATE OF id, expected_schema_key, realized_schema_key, record_count, created_by, created_at ON data_blocks
			BEGIN SELECT RAISE(ABORT, 'immutable: data_blocks'); END`,
		`CREATE TRIGGER IF NOT EXISTS data_blocks_no_delete
			BEFORE DELETE ON data_blocks
			BEGIN SELECT RAISE(ABORT, 'immutable: data_blocks'); END`,
		`CREATE TRIGGER IF NOT EXISTS stored_data_blocks_immutable
			BEFORE UPDATE ON stored_data_blocks
			BEGIN SELECT RAISE(ABORT, 'immutable: stored_data_blocks'); END`,
		`CREATE TRIGGER IF NOT EXISTS stored_data_blocks_no_delete
			BEFORE DELETE ON stored_data_blocks
			BEGIN SELECT RAISE(ABORT, 'immutable: stored_data_blocks'); END`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}

	return nil
}
