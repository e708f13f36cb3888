package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/backup"
	"github.com/listenupapp/marginalia/internal/errors"
)

// NewBackupCommand creates the backup command group.
func NewBackupCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create and restore complete archives, attached files included",
	}
	cmd.AddCommand(newBackupCreateCommand(opts))
	cmd.AddCommand(newBackupListCommand(opts))
	cmd.AddCommand(newBackupRestoreCommand(opts))
	return cmd
}

func newBackupCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		outPath string
		noBlobs bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				svc := do.MustInvoke[*backup.BackupService](s.injector)
				bo := backup.DefaultBackupOptions()
				bo.OutputPath = outPath
				bo.IncludeBlobs = !noBlobs

				res, err := svc.Create(ctx, bo)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(res, func(w io.Writer) {
					fmt.Fprintf(w, "Backup written to %s (%s)\n", res.Path, humanize.Bytes(uint64(res.Size)))
					fmt.Fprintf(w, "  %d books, %d projects, %d notes, %d files\n",
						res.Counts.Books, res.Counts.Projects, res.Counts.Notes, res.Blobs)
					if len(res.Missing) > 0 {
						fmt.Fprintf(w, "  %d referenced files were not found and are not included\n", len(res.Missing))
					}
				})
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "archive path (default <data-path>/backups)")
	cmd.Flags().BoolVar(&noBlobs, "no-files", false, "leave attached file contents out")
	return cmd
}

func newBackupListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				svc := do.MustInvoke[*backup.BackupService](s.injector)
				infos, err := svc.List(ctx)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(infos, func(w io.Writer) {
					if len(infos) == 0 {
						fmt.Fprintln(w, "No backups.")
						return
					}
					rows := make([][]string, 0, len(infos))
					for _, b := range infos {
						rows = append(rows, []string{b.ID, humanize.Bytes(uint64(b.Size)), humanize.Time(b.CreatedAt)})
					}
					table(w, "ID\tSIZE\tCREATED", rows)
				})
			})
		},
	}
}

func newBackupRestoreCommand(opts *RootOptions) *cobra.Command {
	var (
		mode   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore a backup archive",
		Long: `Restore a backup archive.

--mode full replaces every collection with the archive's; --mode merge keeps
local records that are newer. Attached files missing locally are restored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro := backup.RestoreOptions{Mode: backup.RestoreMode(mode), DryRun: dryRun}
			if !ro.Mode.Valid() {
				return errors.Validationf("invalid restore mode %q: must be full or merge", mode)
			}

			return withSession(opts, func(ctx context.Context, s *session) error {
				svc := do.MustInvoke[*backup.RestoreService](s.injector)
				res, err := svc.Restore(ctx, args[0], ro)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(res, func(w io.Writer) {
					verb := "Restored"
					if res.DryRun {
						verb = "Would restore"
					}
					fmt.Fprintf(w, "%s (%s): books %d -> %d, projects %d -> %d, notes %d -> %d\n", verb, res.Mode,
						res.Before.Books, res.After.Books, res.Before.Projects, res.After.Projects,
						res.Before.Notes, res.After.Notes)
					fmt.Fprintf(w, "  files restored: %d, already present: %d\n", res.BlobsRestored, res.BlobsSkipped)
					for _, e := range res.Errors {
						fmt.Fprintf(w, "  warning: %s %s: %s\n", e.EntityType, e.EntityID, e.Error)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(backup.RestoreModeMerge), "full or merge")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}
