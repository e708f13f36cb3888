package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/domain"
)

// Put stores r, overwriting any record with the same id.
func (s *Store) Put(ctx context.Context, r *blob.Record) error {
	data := r.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (id, name, mime_type, file_type, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			file_type = excluded.file_type,
			size = excluded.size,
			data = excluded.data,
			created_at = excluded.created_at`,
		r.ID, r.Name, r.Type, string(r.FileType), r.Size, data, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put blob %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the record with the given id. ok is false if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*blob.Record, bool, error) {
	var (
		r         blob.Record
		fileType  string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, mime_type, file_type, size, data, created_at
		FROM blobs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Type, &fileType, &r.Size, &r.Data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", id, err)
	}

	r.FileType = domain.FileType(fileType)
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, false, fmt.Errorf("parse blob %s created_at: %w", id, err)
	}
	if r.Data == nil {
		r.Data = []byte{}
	}
	return &r, true, nil
}

// Delete removes the record with the given id. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// IDs returns the ids of all stored blobs.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM blobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blob id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
