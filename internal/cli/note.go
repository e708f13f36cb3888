package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
)

// NewNoteCommand creates the note command group.
func NewNoteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes, todos and scheduled items",
	}
	cmd.AddCommand(newNoteAddCommand(opts))
	cmd.AddCommand(newNoteListCommand(opts))
	cmd.AddCommand(newNoteToggleCommand(opts))
	cmd.AddCommand(newNoteRemoveCommand(opts))
	return cmd
}

func newNoteAddCommand(opts *RootOptions) *cobra.Command {
	var (
		in                 domain.NoteInput
		noteType, priority string
		due                string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = args[0]
			in.Type = domain.NoteType(noteType)
			in.Priority = domain.Priority(priority)
			if due != "" {
				d, err := time.Parse(time.DateOnly, due)
				if err != nil {
					return errors.Validationf("invalid due date %q: use YYYY-MM-DD", due)
				}
				in.DueDate = &d
			}

			return withSession(opts, func(ctx context.Context, s *session) error {
				n, err := s.lib.CreateNote(ctx, in)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(n, func(w io.Writer) {
					fmt.Fprintf(w, "Added %s %q (%s)\n", n.Type, n.Title, n.ID)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Content, "content", "", "note body")
	f.StringVarP(&noteType, "type", "t", "", "todo, note or schedule (default note)")
	f.StringVarP(&priority, "priority", "p", "", "low, medium or high (default medium)")
	f.StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	f.StringSliceVar(&in.Tags, "tags", nil, "comma-separated tags")

	return cmd
}

func newNoteListCommand(opts *RootOptions) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(_ context.Context, s *session) error {
				notes := s.lib.ListNotes()
				if pending {
					kept := notes[:0]
					for _, n := range notes {
						if n.Pending() {
							kept = append(kept, n)
						}
					}
					notes = kept
				}
				return newOutput(opts, cmd).emit(notes, func(w io.Writer) {
					if len(notes) == 0 {
						fmt.Fprintln(w, "No notes.")
						return
					}
					rows := make([][]string, 0, len(notes))
					for _, n := range notes {
						done := " "
						if n.Completed {
							done = "x"
						}
						dueDate := "-"
						if n.DueDate != nil {
							dueDate = n.DueDate.Format(time.DateOnly)
						}
						rows = append(rows, []string{"[" + done + "]", n.ID, n.Title, string(n.Type), string(n.Priority), dueDate})
					}
					table(w, "\tID\tTITLE\tTYPE\tPRIORITY\tDUE", rows)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "only unfinished todos")
	return cmd
}

func newNoteToggleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a note done, or not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				n, ok, err := s.lib.ToggleNote(ctx, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return errors.NotFoundf("note %s not found", args[0])
				}
				return newOutput(opts, cmd).emit(n, func(w io.Writer) {
					state := "open"
					if n.Completed {
						state = "done"
					}
					fmt.Fprintf(w, "%q is %s\n", n.Title, state)
				})
			})
		},
	}
}

func newNoteRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				n, ok := s.lib.GetNote(args[0])
				if !ok {
					return errors.NotFoundf("note %s not found", args[0])
				}
				if err := s.lib.DeleteNote(ctx, n.ID); err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(map[string]string{"deleted": n.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %q\n", n.Title)
				})
			})
		},
	}
}
