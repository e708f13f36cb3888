// Package blob defines the binary attachment records referenced by books and
// project files, and the store contract their backends satisfy.
//
// A blob store knows nothing about owners. The library holds the only live
// references and issues deletions when an owning record goes away.
package blob

import (
	"context"
	"sync"
	"time"

	"github.com/listenupapp/marginalia/internal/domain"
)

// Record is a stored file. Data round-trips byte for byte.
type Record struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	FileType  domain.FileType `json:"fileType"`
	Size      int64           `json:"size"`
	Data      []byte          `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Meta returns r without its payload.
func (r *Record) Meta() Record {
	m := *r
	m.Data = nil
	return m
}

// Store persists blob records.
//
// Get on a missing id returns ok=false and a nil error. Put with an existing
// id overwrites. Delete of a missing id is a no-op.
type Store interface {
	Put(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, bool, error)
	Delete(ctx context.Context, id string) error
}

// Lister is implemented by stores that can enumerate their contents.
type Lister interface {
	IDs(ctx context.Context) ([]string, error)
}

// Memory is an in-process Store. It is used by tests and by libraries opened
// without durable storage.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Put stores a copy of r.
func (m *Memory) Put(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := *r
	c.Data = append([]byte(nil), r.Data...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = c
	return nil
}

// Get returns a copy of the record with the given id.
func (m *Memory) Get(ctx context.Context, id string) (*Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, false, nil
	}
	r.Data = append([]byte(nil), r.Data...)
	return &r, true, nil
}

// Delete removes the record with the given id.
func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// IDs returns the ids of all stored records in no particular order.
func (m *Memory) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
