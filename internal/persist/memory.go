package persist

import (
	"context"
	"sync"
)

// Memory is a DocumentStore that keeps the document in process. SetFail
// injects save failures.
type Memory struct {
	mu        sync.Mutex
	doc       []byte
	preserved []byte
	saves     int
	fail      error
}

// NewMemory returns an empty Memory document store.
func NewMemory() *Memory {
	return &Memory{}
}

// LoadDocument implements DocumentStore.
func (m *Memory) LoadDocument(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, false, nil
	}
	return append([]byte(nil), m.doc...), true, nil
}

// SaveDocument implements DocumentStore.
func (m *Memory) SaveDocument(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.doc = append([]byte(nil), doc...)
	m.saves++
	return nil
}

// PreserveDocument implements Preserver.
func (m *Memory) PreserveDocument(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.preserved = append([]byte(nil), doc...)
	return nil
}

// Preserved returns the last document set aside by PreserveDocument.
func (m *Memory) Preserved() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preserved
}

// SetFail makes subsequent saves return err, or succeed again when err is nil.
func (m *Memory) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
