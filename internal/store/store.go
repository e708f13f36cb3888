// Package store is the Badger-backed durable storage of a Marginalia
// library. One database holds the persisted snapshot document, the blob
// records it references, and, on a relay, the published sync payloads.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Key layout.
const (
	documentKey    = "doc:snapshot"
	corruptKey     = "doc:snapshot.corrupt"
	blobMetaPrefix = "blob:meta:"
	blobDataPrefix = "blob:data:"
	slotPrefix     = "relay:"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New opens (or creates) the database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewInMemory opens a database that lives only as long as the process.
func NewInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// LoadDocument returns the persisted snapshot document. ok is false when
// nothing has been saved yet.
func (s *Store) LoadDocument(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(documentKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load document: %w", err)
	}
	return data, true, nil
}

// SaveDocument replaces the persisted snapshot document.
func (s *Store) SaveDocument(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(documentKey), doc)
	}); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// PreserveDocument keeps doc under a side key, replacing any earlier copy.
func (s *Store) PreserveDocument(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(corruptKey), doc)
	}); err != nil {
		return fmt.Errorf("preserve document: %w", err)
	}
	if s.logger != nil {
		s.logger.Warn("unreadable snapshot preserved", "key", corruptKey, "bytes", len(doc))
	}
	return nil
}

// Commit replaces the snapshot document and deletes the given blobs in one
// transaction. Either all of it lands or none of it does.
func (s *Store) Commit(ctx context.Context, doc []byte, deleteBlobs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(documentKey), doc); err != nil {
			return fmt.Errorf("failed to set document: %w", err)
		}
		for _, id := range deleteBlobs {
			if err := deleteBlobTxn(txn, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
