package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutSlot stores a published sync payload under code, replacing any earlier
// one. A positive ttl makes the slot expire.
func (s *Store) PutSlot(ctx context.Context, code string, payload []byte, ttl time.Duration) error {
	var expires sql.NullString
	if ttl > 0 {
		expires = sql.NullString{String: formatTime(time.Now().Add(ttl)), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (code, payload, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`,
		code, payload, expires,
	)
	if err != nil {
		return fmt.Errorf("put slot %s: %w", code, err)
	}
	return nil
}

// GetSlot returns the latest payload published under code. ok is false if
// nothing was published or the slot expired. Expired slots are removed.
func (s *Store) GetSlot(ctx context.Context, code string) ([]byte, bool, error) {
	var (
		payload []byte
		expires sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, expires_at FROM slots WHERE code = ?`, code).Scan(&payload, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %s: %w", code, err)
	}

	if expires.Valid {
		at, err := parseTime(expires.String)
		if err != nil {
			return nil, false, fmt.Errorf("parse slot %s expires_at: %w", code, err)
		}
		if !time.Now().Before(at) {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE code = ?`, code); err != nil && s.logger != nil {
				s.logger.Warn("failed to remove expired slot", "code", code, "error", err)
			}
			return nil, false, nil
		}
	}
	return payload, true, nil
}
