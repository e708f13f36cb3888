package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/exchange"
)

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the library as a JSON document",
		Long: `Write the whole library as a JSON document, to stdout or to a file.

Attached file contents are not included; use "backup create" for a complete copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(_ context.Context, s *session) error {
				data, err := exchange.ExportData(s.lib)
				if err != nil {
					return err
				}
				if outPath == "" || outPath == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), data)
					return err
				}
				if err := os.WriteFile(outPath, []byte(data+"\n"), 0o600); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", outPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "file to write (default stdout)")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the library with an exported JSON document",
		Long: `Replace every collection with those in an exported JSON document ("-" reads stdin).

The import is all or nothing: a malformed document leaves the library untouched.
This device keeps its own device id and sync code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0]) //#nosec G304 -- user-selected file
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			return withSession(opts, func(ctx context.Context, s *session) error {
				if _, err := exchange.ImportData(ctx, s.lib, string(data)); err != nil {
					return err
				}
				counts := s.lib.Counts()
				return newOutput(opts, cmd).emit(counts, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d books, %d categories, %d projects, %d notes, %d PDF annotations\n",
						counts.Books, counts.Categories, counts.Projects, counts.Notes, counts.PDFAnnotations)
				})
			})
		},
	}
}

// NewSyncCommand creates the sync command group.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Exchange the library with other devices",
		Long: `Publish this library under its sync code, or pull and merge another device's.

Without --relay (or RELAY_URL) payloads are staged in the local data directory.`,
	}
	cmd.AddCommand(newSyncPushCommand(opts))
	cmd.AddCommand(newSyncPullCommand(opts))
	cmd.AddCommand(newSyncCodeCommand(opts))
	return cmd
}

func newSyncPushCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Publish this library under its sync code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				engine := do.MustInvoke[*exchange.Engine](s.injector)
				code, err := engine.Export(ctx)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(map[string]string{"code": code}, func(w io.Writer) {
					fmt.Fprintf(w, "Published. Pull on another device with: marginalia sync pull %s\n", code)
				})
			})
		},
	}
}

func newSyncPullCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <code>",
		Short: "Merge the library published under a sync code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				engine := do.MustInvoke[*exchange.Engine](s.injector)
				res, err := engine.Pull(ctx, args[0])
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(res, func(w io.Writer) {
					if !res.Found {
						fmt.Fprintf(w, "Nothing has been published under %s.\n", args[0])
						return
					}
					fmt.Fprintf(w, "Merged from device %s\n", res.DeviceID)
					fmt.Fprintf(w, "  books:      %d -> %d\n", res.Before.Books, res.After.Books)
					fmt.Fprintf(w, "  categories: %d -> %d\n", res.Before.Categories, res.After.Categories)
					fmt.Fprintf(w, "  projects:   %d -> %d\n", res.Before.Projects, res.After.Projects)
					fmt.Fprintf(w, "  notes:      %d -> %d\n", res.Before.Notes, res.After.Notes)
					if n := len(res.MissingIDs); n > 0 {
						fmt.Fprintf(w, "%d attached files live only on the other device.\n", n)
					}
				})
			})
		},
	}
}

func newSyncCodeCommand(opts *RootOptions) *cobra.Command {
	var regenerate bool

	cmd := &cobra.Command{
		Use:   "code",
		Short: "Show this device's sync code and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				if regenerate {
					if _, err := s.lib.RegenerateSyncCode(ctx); err != nil {
						return err
					}
				}
				st := s.lib.SyncState()
				return newOutput(opts, cmd).emit(st, func(w io.Writer) {
					fmt.Fprintf(w, "Sync code:  %s\n", st.SyncCode)
					fmt.Fprintf(w, "Device:     %s\n", st.DeviceID)
					fmt.Fprintf(w, "Last sync:  %s\n", ago(st.LastSyncAt))
					fmt.Fprintf(w, "Status:     %s\n", st.Status)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "issue a new sync code first")
	return cmd
}
