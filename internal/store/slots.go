package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// PutSlot stores a published sync payload under code, replacing any earlier
// one. A positive ttl makes the slot expire.
func (s *Store) PutSlot(ctx context.Context, code string, payload []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(slotPrefix+code), payload)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("put slot %s: %w", code, err)
	}
	return nil
}

// GetSlot returns the latest payload published under code. ok is false if
// nothing was published or the slot expired.
func (s *Store) GetSlot(ctx context.Context, code string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		key := buildKey(slotPrefix, code)
		defer releaseKey(key)

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %s: %w", code, err)
	}
	return payload, true, nil
}
