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

// NewCategoryCommand creates the category command group.
func NewCategoryCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}
	cmd.AddCommand(newCategoryAddCommand(opts))
	cmd.AddCommand(newCategoryListCommand(opts))
	cmd.AddCommand(newCategoryRemoveCommand(opts))
	return cmd
}

func newCategoryAddCommand(opts *RootOptions) *cobra.Command {
	var in domain.CategoryInput

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return withSession(opts, func(ctx context.Context, s *session) error {
				c, err := s.lib.CreateCategory(ctx, in)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(c, func(w io.Writer) {
					fmt.Fprintf(w, "Added category %q (%s)\n", c.Name, c.ID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&in.Color, "color", "", "hex color, e.g. #3b82f6")
	return cmd
}

func newCategoryListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with their book counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(_ context.Context, s *session) error {
				cats := s.lib.ListCategories()
				byCategory := s.lib.Stats().BooksByCategory
				return newOutput(opts, cmd).emit(cats, func(w io.Writer) {
					rows := make([][]string, 0, len(cats))
					for _, c := range cats {
						rows = append(rows, []string{c.ID, c.Name, c.Color, strconv.Itoa(byCategory[c.ID])})
					}
					table(w, "ID\tNAME\tCOLOR\tBOOKS", rows)
				})
			})
		},
	}
}

func newCategoryRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a category; its books move to the fallback category",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if domain.IsSeedCategory(args[0]) {
				return errors.Validationf("%s is a built-in category and cannot be deleted", args[0])
			}
			return withSession(opts, func(ctx context.Context, s *session) error {
				c, ok := s.lib.GetCategory(args[0])
				if !ok {
					return errors.NotFoundf("category %s not found", args[0])
				}
				if err := s.lib.DeleteCategory(ctx, c.ID); err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(map[string]string{"deleted": c.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted category %q\n", c.Name)
				})
			})
		},
	}
}
