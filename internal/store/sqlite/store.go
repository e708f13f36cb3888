// Package sqlite is the SQLite-backed alternative to the Badger store. It
// satisfies the same document, blob and commit contracts.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	documentKey = "snapshot"
	corruptKey  = "snapshot.corrupt"
)

// Store provides SQLite-backed persistence for a Marginalia library.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadDocument returns the persisted snapshot document. ok is false when
// nothing has been saved yet.
func (s *Store) LoadDocument(ctx context.Context) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, documentKey).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load document: %w", err)
	}
	return body, true, nil
}

// SaveDocument replaces the persisted snapshot document.
func (s *Store) SaveDocument(ctx context.Context, doc []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertDocumentSQL, documentKey, doc, formatTime(time.Now())); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// PreserveDocument keeps doc in a side row, replacing any earlier copy.
func (s *Store) PreserveDocument(ctx context.Context, doc []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertDocumentSQL, corruptKey, doc, formatTime(time.Now())); err != nil {
		return fmt.Errorf("preserve document: %w", err)
	}
	return nil
}

// Commit replaces the snapshot document and deletes the given blobs in one
// SQL transaction.
func (s *Store) Commit(ctx context.Context, doc []byte, deleteBlobs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertDocumentSQL, documentKey, doc, formatTime(time.Now())); err != nil {
		return fmt.Errorf("commit document: %w", err)
	}
	for _, id := range deleteBlobs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
			return fmt.Errorf("commit blob delete %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const upsertDocumentSQL = `INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
