// Package main provides the entry point for the Marginalia sync relay.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/di"
	"github.com/listenupapp/marginalia/internal/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags config.Flags

	cmd := &cobra.Command{
		Use:           "marginalia-relay",
		Short:         "Relay that stages published Marginalia libraries by sync code",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.RelayPort, "port", "", "listen port (env RELAY_PORT, default 8787)")
	f.StringVar(&flags.DataPath, "data-path", "", "storage directory (env DATA_PATH)")
	f.StringVar(&flags.Backend, "backend", "", "storage backend: badger or sqlite (env STORAGE_BACKEND)")
	f.StringVar(&flags.Env, "env", "", "environment (env ENV)")
	f.StringVar(&flags.LogLevel, "log-level", "", "log level (env LOG_LEVEL)")
	f.StringVar(&flags.EnvFile, "env-file", "", "path to a .env file (default .env)")

	return cmd
}

func serve(flags config.Flags) error {
	// Create DI container
	injector := di.NewContainer(flags)

	if _, err := di.BootstrapRelay(injector); err != nil {
		injector.Shutdown()
		return fmt.Errorf("failed to start relay: %w", err)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down relay gracefully...")

	// The container shuts the HTTP server down before the store it depends on.
	if err := injector.Shutdown(); err != nil {
		log.WithError(err).Error("Shutdown error")
	}

	log.Info("Relay stopped")
	return nil
}
