package providers

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/logger"
	"github.com/listenupapp/marginalia/internal/persist"
	"github.com/listenupapp/marginalia/internal/store"
	"github.com/listenupapp/marginalia/internal/store/sqlite"
)

// Backend is a durable store holding the snapshot document, blob records and
// relay slots. Both the Badger and SQLite stores satisfy it.
type Backend interface {
	persist.DocumentStore
	persist.Transactional
	persist.Preserver
	blob.Store
	blob.Lister
	exchange.Slots
	Close() error
}

var (
	_ Backend = (*store.Store)(nil)
	_ Backend = (*sqlite.Store)(nil)
)

// StoreHandle wraps the selected backend with shutdown capability.
type StoreHandle struct {
	Backend
	Kind string
	Path string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the durable store selected by STORAGE_BACKEND.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := cfg.DatabasePath()
	storeLog := log.WithField("backend", cfg.Storage.Backend)
	var (
		backend Backend
		err     error
	)
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		backend, err = sqlite.Open(path, storeLog.Logger)
	default:
		backend, err = store.New(path, storeLog.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("Database initialized", "backend", cfg.Storage.Backend, "path", path)

	return &StoreHandle{Backend: backend, Kind: cfg.Storage.Backend, Path: path}, nil
}
