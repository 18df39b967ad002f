// Package db opens the doclink SQLite database and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the DB at path, creates the directory if needed, runs migrations.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %v, close failed: %w", err, closeErr)
		}
		return nil, err
	}
	if err := migrate(conn); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("migrate failed: %v, close failed: %w", err, closeErr)
		}
		return nil, err
	}
	return conn, nil
}

// OpenMemory opens a private in-memory database, for tests.
func OpenMemory() (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", "file::memory:?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single pooled connection keeps the in-memory database alive.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS registry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	resource_id INTEGER NOT NULL DEFAULT 0,
	article TEXT NOT NULL DEFAULT '',
	vendor_id INTEGER NOT NULL DEFAULT 0,
	vendor_name TEXT NOT NULL DEFAULT '',
	folder TEXT NOT NULL DEFAULT '',
	doc_name TEXT NOT NULL,
	preview_name TEXT NOT NULL DEFAULT '',
	doc_url TEXT NOT NULL DEFAULT '',
	preview_url TEXT NOT NULL DEFAULT '',
	created_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_registry_article ON registry(article);
CREATE INDEX IF NOT EXISTS idx_registry_vendor ON registry(vendor_id);
CREATE INDEX IF NOT EXISTS idx_registry_resource ON registry(resource_id);
CREATE INDEX IF NOT EXISTS idx_registry_identity ON registry(folder, doc_name);

CREATE TABLE IF NOT EXISTS resource_fields (
	resource_id INTEGER NOT NULL,
	field_key TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (resource_id, field_key)
);

CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pagetitle TEXT NOT NULL DEFAULT '',
	article TEXT NOT NULL DEFAULT '',
	vendor INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_products_article ON products(article);

CREATE TABLE IF NOT EXISTS vendors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT ''
);
`
