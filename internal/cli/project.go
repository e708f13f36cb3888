package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
)

// NewProjectCommand creates the project command group.
func NewProjectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectAddCommand(opts))
	cmd.AddCommand(newProjectListCommand(opts))
	cmd.AddCommand(newProjectRemoveCommand(opts))
	return cmd
}

func newProjectAddCommand(opts *RootOptions) *cobra.Command {
	var (
		in     domain.ProjectInput
		status string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			in.Status = domain.ProjectStatus(status)
			return withSession(opts, func(ctx context.Context, s *session) error {
				p, err := s.lib.CreateProject(ctx, in)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(p, func(w io.Writer) {
					fmt.Fprintf(w, "Added project %q (%s)\n", p.Name, p.ID)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVar(&status, "status", "", "ongoing, completed or archived (default ongoing)")
	f.StringVar(&in.StartDate, "start", "", "start date, YYYY-MM-DD (default today)")
	f.StringSliceVar(&in.Tags, "tags", nil, "comma-separated tags")

	return cmd
}

func newProjectListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(_ context.Context, s *session) error {
				projects := s.lib.ListProjects()
				return newOutput(opts, cmd).emit(projects, func(w io.Writer) {
					if len(projects) == 0 {
						fmt.Fprintln(w, "No projects.")
						return
					}
					rows := make([][]string, 0, len(projects))
					for _, p := range projects {
						rows = append(rows, []string{p.ID, p.Name, string(p.Status), p.StartDate, strconv.Itoa(len(p.Files))})
					}
					table(w, "ID\tNAME\tSTATUS\tSTARTED\tFILES", rows)
				})
			})
		},
	}
}

func newProjectRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a project and its files",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				p, ok := s.lib.GetProject(args[0])
				if !ok {
					return errors.NotFoundf("project %s not found", args[0])
				}
				if err := s.lib.DeleteProject(ctx, p.ID); err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(map[string]string{"deleted": p.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted project %q\n", p.Name)
				})
			})
		},
	}
}
