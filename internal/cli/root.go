// Package cli implements the marginalia command-line interface. Every
// command opens the library through the DI container, performs one
// operation and closes it again.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/config"
	"github.com/listenupapp/marginalia/internal/di"
	"github.com/listenupapp/marginalia/internal/library"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Flags  config.Flags
	Format string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the marginalia CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "marginalia",
		Short:         "Marginalia - a local-first reading library",
		Long:          "Track books, papers and articles with notes, projects and annotations, and sync them between devices.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			// Keep routine info logs off the terminal unless asked for.
			if opts.Flags.LogLevel == "" && os.Getenv("LOG_LEVEL") == "" {
				opts.Flags.LogLevel = "warn"
			}
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	f.StringVar(&opts.Flags.DataPath, "data-path", "", "library directory (env DATA_PATH, default ~/Marginalia)")
	f.StringVar(&opts.Flags.Backend, "backend", "", "storage backend: badger or sqlite (env STORAGE_BACKEND)")
	f.StringVar(&opts.Flags.Env, "env", "", "environment: development, staging or production (env ENV)")
	f.StringVar(&opts.Flags.LogLevel, "log-level", "", "log level (env LOG_LEVEL)")
	f.StringVar(&opts.Flags.EnvFile, "env-file", "", "path to a .env file (default .env)")
	f.StringVar(&opts.Flags.RelayURL, "relay", "", "sync relay base URL (env RELAY_URL)")
	f.StringVar(&opts.Flags.MaxUploadSize, "max-upload-size", "", "largest attachable file, e.g. 50MB (env MAX_UPLOAD_SIZE)")

	cmd.AddCommand(NewBookCommand(opts))
	cmd.AddCommand(NewCategoryCommand(opts))
	cmd.AddCommand(NewNoteCommand(opts))
	cmd.AddCommand(NewProjectCommand(opts))
	cmd.AddCommand(NewTagsCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

// session is an open library and the container that owns it.
type session struct {
	injector *do.RootScope
	lib      *library.Library
}

func (s *session) close() {
	s.injector.Shutdown()
}

// withSession opens the library, runs fn and closes the library again.
func withSession(opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	injector := di.NewContainer(opts.Flags)
	lib, err := di.Bootstrap(injector)
	if err != nil {
		injector.Shutdown()
		return err
	}
	s := &session{injector: injector, lib: lib}
	defer s.close()

	return fn(context.Background(), s)
}
