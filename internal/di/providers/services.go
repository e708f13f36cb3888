package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/listenupapp/marginalia/internal/backup"
	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/library"
	"github.com/listenupapp/marginalia/internal/logger"
	"github.com/listenupapp/marginalia/internal/persist"
	"github.com/listenupapp/marginalia/internal/relay"
	"github.com/listenupapp/marginalia/internal/validation"
)

// ProvideLibrary opens the library persisted in the store.
func ProvideLibrary(i do.Injector) (*library.Library, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	clk := do.MustInvoke[clock.Clock](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	lib := library.New(library.Config{
		Adapter:          persist.New(storeHandle.Backend, storeHandle.Backend, log.Logger),
		Blobs:            storeHandle.Backend,
		Clock:            clk,
		Validator:        validation.New(),
		Logger:           log.Logger,
		MaxUploadSize:    cfg.Library.MaxUploadSize,
		FallbackCategory: cfg.Library.FallbackCategory,
	})

	origin, err := lib.Load(context.Background())
	if err != nil {
		return nil, err
	}
	if origin == persist.OriginRecovered {
		log.Warn("Library document was unreadable and has been reset", "path", storeHandle.Path)
	}

	sync := lib.SyncState()
	log.Debug("Library loaded", "origin", origin, "device_id", sync.DeviceID)

	return lib, nil
}

// ProvideTransport provides the staging location for exchanges: the relay
// at RELAY_URL, or slots in the local store when no relay is configured.
func ProvideTransport(i do.Injector) (exchange.Transport, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Relay.URL != "" {
		return relay.NewClient(cfg.Relay.URL, nil, log.Logger), nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	return exchange.NewSlotTransport(storeHandle.Backend, cfg.Relay.TTL), nil
}

// ProvideEngine provides the sync engine.
func ProvideEngine(i do.Injector) (*exchange.Engine, error) {
	lib := do.MustInvoke[*library.Library](i)
	transport := do.MustInvoke[exchange.Transport](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	return exchange.NewEngine(lib, transport, clk, log.Logger), nil
}

// ProvideBackupService provides the backup archive writer.
func ProvideBackupService(i do.Injector) (*backup.BackupService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	lib := do.MustInvoke[*library.Library](i)
	clk := do.MustInvoke[clock.Clock](i)
	log := do.MustInvoke[*logger.Logger](i)

	backupDir := filepath.Join(cfg.Storage.DataPath, "backups")
	return backup.NewBackupService(lib, backupDir, Version, clk, log.Logger), nil
}

// ProvideRestoreService provides the backup restorer.
func ProvideRestoreService(i do.Injector) (*backup.RestoreService, error) {
	lib := do.MustInvoke[*library.Library](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewRestoreService(lib, storeHandle.Backend, log.Logger), nil
}
