package local

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteKV is a KV backed by an embedded SQLite database. It gives the
// local adapter durable storage with WAL-mode concurrency while keeping
// the same whole-blob-per-key contract as the other implementations.
type SQLiteKV struct {
	conn *sql.DB
	path string
}

// OpenSQLiteKV opens (or creates) the KV database at path.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	kv, err := local.OpenSQLiteKV(".ledgerdesk/local.db")
//	if err != nil {
//	    return err
//	}
//	defer kv.Close()
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	kv := &SQLiteKV{conn: conn, path: path}

	// WAL mode for concurrent reads during writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return kv, nil
}

// GetItem returns the stored value for key. Read errors degrade to
// absence; the adapter treats missing data as an empty collection.
func (kv *SQLiteKV) GetItem(key string) (string, bool) {
	var value string
	err := kv.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetItem upserts value under key. Write errors propagate; they represent
// real data-loss risk.
func (kv *SQLiteKV) SetItem(key, value string) error {
	_, err := kv.conn.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Close checkpoints the WAL and closes the connection.
func (kv *SQLiteKV) Close() error {
	if kv.conn == nil {
		return nil
	}
	if _, err := kv.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := kv.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	kv.conn = nil
	return nil
}
