// Package di provides dependency injection configuration for Marginalia.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/di/providers"
	"github.com/listenupapp/marginalia/internal/library"
	"github.com/listenupapp/marginalia/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
// Services are built lazily, so the relay binary never opens a library and
// the CLI never starts a server.
func NewContainer(flags config.Flags) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, flags)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideClock)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Library and exchange
	do.Provide(injector, providers.ProvideLibrary)
	do.Provide(injector, providers.ProvideTransport)
	do.Provide(injector, providers.ProvideEngine)
	do.Provide(injector, providers.ProvideBackupService)
	do.Provide(injector, providers.ProvideRestoreService)

	// Server
	do.Provide(injector, providers.ProvideRelayServer)

	return injector
}

// Bootstrap opens the store and loads the library.
func Bootstrap(injector *do.RootScope) (*library.Library, error) {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return nil, err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return nil, err
	}
	return do.Invoke[*library.Library](injector)
}

// BootstrapRelay opens the store and starts the relay server.
func BootstrapRelay(injector *do.RootScope) (*providers.HTTPServerHandle, error) {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return nil, err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	return do.Invoke[*providers.HTTPServerHandle](injector)
}
