package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/marginalia/internal/blob"
)

// Blob records are split across two keys: JSON metadata and the raw bytes,
// so listing and size checks never read payloads.

// Put stores r, overwriting any record with the same id.
func (s *Store) Put(ctx context.Context, r *blob.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta, err := json.Marshal(r.Meta())
	if err != nil {
		return fmt.Errorf("failed to marshal blob meta: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(blobMetaPrefix+r.ID), meta); err != nil {
			return err
		}
		return txn.Set([]byte(blobDataPrefix+r.ID), r.Data)
	})
	if err != nil {
		return fmt.Errorf("put blob %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the record with the given id. ok is false if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*blob.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var r blob.Record
	err := s.db.View(func(txn *badger.Txn) error {
		metaKey := buildKey(blobMetaPrefix, id)
		defer releaseKey(metaKey)

		item, err := txn.Get(metaKey)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal blob meta: %w", err)
		}

		dataKey := buildKey(blobDataPrefix, id)
		defer releaseKey(dataKey)

		item, err = txn.Get(dataKey)
		if err != nil {
			return err
		}
		r.Data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", id, err)
	}
	if r.Data == nil {
		r.Data = []byte{}
	}
	return &r, true, nil
}

// Delete removes the record with the given id. Missing ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return deleteBlobTxn(txn, id)
	}); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// IDs returns the ids of all stored blobs.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(blobMetaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), blobMetaPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return ids, nil
}

func deleteBlobTxn(txn *badger.Txn, id string) error {
	if err := txn.Delete([]byte(blobMetaPrefix + id)); err != nil {
		return fmt.Errorf("failed to delete blob meta %s: %w", id, err)
	}
	if err := txn.Delete([]byte(blobDataPrefix + id)); err != nil {
		return fmt.Errorf("failed to delete blob data %s: %w", id, err)
	}
	return nil
}
