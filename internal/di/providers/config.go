// Package providers contains dependency injection providers for Marginalia.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/logger"
)

// ProvideConfig provides the application configuration. Command-line values
// come from the config.Flags registered in the container.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	flags, err := do.Invoke[config.Flags](i)
	if err != nil {
		flags = config.Flags{}
	}
	return config.LoadConfig(flags)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Debug("Starting Marginalia",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
		"backend", cfg.Storage.Backend,
	)

	return log, nil
}

// ProvideClock provides the wall clock every component stamps records with.
func ProvideClock(i do.Injector) (clock.Clock, error) {
	return clock.New(), nil
}
