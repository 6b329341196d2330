package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tursodatabase/go-libsql"

	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store"
)

// DefaultPollInterval is how often Watch checks the collection version
// when no custom interval is configured.
const DefaultPollInterval = 2 * time.Second

// LibsqlStore is a DocStore backed by a libSQL embedded replica. The
// replica syncs against the remote primary, so reads are local and writes
// propagate to other devices through the database's own replication. The
// change signal is a poll over a per-collection version counter that is
// bumped inside the same transaction as every mutation, so a signal is
// never observed before the write that caused it.
type LibsqlStore struct {
	conn         *sql.DB
	connector    *libsql.Connector
	logger       *log.Logger
	pollInterval time.Duration
}

// LibsqlConfig configures the embedded replica connection.
type LibsqlConfig struct {
	// ReplicaPath is the local path of the embedded replica database.
	ReplicaPath string

	// PrimaryURL is the remote primary (libsql://...). Required.
	PrimaryURL string

	// AuthToken authenticates against the primary.
	AuthToken string

	// SyncInterval is how often the replica pulls from the primary.
	SyncInterval time.Duration

	// PollInterval is how often Watch re-checks collection versions.
	PollInterval time.Duration

	// Logger for store activity.
	Logger *log.Logger
}

// OpenLibsql opens the embedded replica and ensures the schema exists.
//
// The caller MUST call Close() when done.
func OpenLibsql(cfg LibsqlConfig) (*LibsqlStore, error) {
	if cfg.PrimaryURL == "" {
		return nil, fmt.Errorf("primary URL is required")
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[libsql] ", log.LstdFlags)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.ReplicaPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create replica directory: %w", err)
	}

	connector, err := libsql.NewEmbeddedReplicaConnector(cfg.ReplicaPath, cfg.PrimaryURL,
		libsql.WithAuthToken(cfg.AuthToken),
		libsql.WithSyncInterval(cfg.SyncInterval),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect embedded replica: %w", err)
	}

	conn := sql.OpenDB(connector)
	store := &LibsqlStore{
		conn:         conn,
		connector:    connector,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Ping verifies the replica connection is usable.
func (s *LibsqlStore) Ping(ctx context.Context) error {
	if s.conn == nil {
		return store.ErrClosed
	}
	return s.conn.PingContext(ctx)
}

// Close closes the replica connection.
func (s *LibsqlStore) Close() error {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		s.conn = nil
	}
	if s.connector != nil {
		if err := s.connector.Close(); err != nil {
			return fmt.Errorf("failed to close connector: %w", err)
		}
		s.connector = nil
	}
	return nil
}

// initSchema creates the documents and version tables. Idempotent.
func (s *LibsqlStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		user_id    TEXT NOT NULL,
		collection TEXT NOT NULL,
		doc_id     TEXT NOT NULL,
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, collection, doc_id)
	);

	CREATE TABLE IF NOT EXISTS collection_versions (
		user_id    TEXT NOT NULL,
		collection TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, collection)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_scope
	    ON documents(user_id, collection);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// List implements DocStore.List.
func (s *LibsqlStore) List(ctx context.Context, userID, collection string) ([]model.Fields, error) {
	if s.conn == nil {
		return nil, store.ErrClosed
	}
	rows, err := s.conn.QueryContext(ctx,
		"SELECT data FROM documents WHERE user_id = ? AND collection = ?",
		userID, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s/%s: %w", userID, collection, err)
	}
	defer rows.Close()

	records := []model.Fields{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var f model.Fields
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			// One corrupt document shouldn't take down the collection.
			s.logger.Printf("Skipping corrupt document in %s/%s: %v", userID, collection, err)
			continue
		}
		records = append(records, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return records, nil
}

// UpsertMerge implements DocStore.UpsertMerge. The read-merge-write runs
// in one transaction together with the version bump.
func (s *LibsqlStore) UpsertMerge(ctx context.Context, userID, collection, docID string, fields model.Fields) error {
	if s.conn == nil {
		return store.ErrClosed
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	merged := fields
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?",
		userID, collection, docID).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// New document, write as-is.
	case err != nil:
		return fmt.Errorf("failed to read existing document: %w", err)
	default:
		var existing model.Fields
		if jerr := json.Unmarshal([]byte(raw), &existing); jerr != nil {
			s.logger.Printf("Replacing corrupt document %s/%s/%s", userID, collection, docID)
		} else {
			merged = existing.Merge(fields)
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents (user_id, collection, doc_id, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, collection, doc_id)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, collection, docID, string(data), now); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if err := bumpVersion(ctx, tx, userID, collection); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Delete implements DocStore.Delete.
func (s *LibsqlStore) Delete(ctx context.Context, userID, collection, docID string) error {
	if s.conn == nil {
		return store.ErrClosed
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?",
		userID, collection, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := bumpVersion(ctx, tx, userID, collection); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Watch implements DocStore.Watch by polling the collection version.
func (s *LibsqlStore) Watch(ctx context.Context, userID, collection string) (<-chan struct{}, error) {
	if s.conn == nil {
		return nil, store.ErrClosed
	}
	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)

		last := int64(-1)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			version, err := s.version(ctx, userID, collection)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Printf("Version poll failed for %s/%s: %v", userID, collection, err)
				}
				continue
			}
			if version != last {
				last = version
				select {
				case changes <- struct{}{}:
				default:
					// A signal is already pending; the reader will see
					// the latest state when it gets to it.
				}
			}
		}
	}()

	return changes, nil
}

func (s *LibsqlStore) version(ctx context.Context, userID, collection string) (int64, error) {
	var version int64
	err := s.conn.QueryRowContext(ctx,
		"SELECT version FROM collection_versions WHERE user_id = ? AND collection = ?",
		userID, collection).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, userID, collection string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO collection_versions (user_id, collection, version)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id, collection) DO UPDATE SET version = version + 1`,
		userID, collection); err != nil {
		return fmt.Errorf("failed to bump collection version: %w", err)
	}
	return nil
}
