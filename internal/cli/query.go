package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/query"
)

// NewTagsCommand creates the tags command.
func NewTagsCommand(opts *RootOptions) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List every tag used by a book",
		Long: `List every tag used by a book. Tags are listed in byte order unless
--lang names a language, in which case they are collated for that language
ignoring case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var display *language.Tag
			if lang != "" {
				tag, err := language.Parse(lang)
				if err != nil {
					return errors.Validationf("invalid language %q", lang)
				}
				display = &tag
			}

			return withSession(opts, func(_ context.Context, s *session) error {
				tags := s.lib.Tags()
				if display != nil {
					tags = query.SortTagsForDisplay(tags, *display)
				}
				return newOutput(opts, cmd).emit(tags, func(w io.Writer) {
					if len(tags) == 0 {
						fmt.Fprintln(w, "No tags.")
						return
					}
					fmt.Fprintln(w, strings.Join(tags, "\n"))
				})
			})
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "collate tags for this BCP 47 language (e.g. en, de, sv)")
	return cmd
}

// statsReport is the stats command's JSON shape.
type statsReport struct {
	domain.Stats
	CompletionRate float64             `json:"completionRate"`
	Counts         domain.EntityCounts `json:"counts"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(_ context.Context, s *session) error {
				st := s.lib.Stats()
				report := statsReport{Stats: st, CompletionRate: st.CompletionRate(), Counts: s.lib.Counts()}
				names := make(map[string]string)
				for _, c := range s.lib.ListCategories() {
					names[c.ID] = c.Name
				}
				return newOutput(opts, cmd).emit(report, func(w io.Writer) {
					fmt.Fprintf(w, "Books:        %d (%d reading, %d completed, %d unread)\n",
						st.TotalBooks, st.ReadingBooks, st.CompletedBooks, st.UnreadBooks)
					fmt.Fprintf(w, "Completion:   %.0f%%\n", report.CompletionRate*100)
					fmt.Fprintf(w, "Annotations:  %d\n", st.TotalAnnotations)
					fmt.Fprintf(w, "Projects:     %d\n", st.TotalProjects)
					fmt.Fprintf(w, "Notes:        %d (%d pending todos)\n", st.TotalNotes, st.PendingTodos)

					ids := make([]string, 0, len(st.BooksByCategory))
					for id := range st.BooksByCategory {
						ids = append(ids, id)
					}
					slices.Sort(ids)
					if len(ids) > 0 {
						fmt.Fprintln(w, "\nBy category:")
					}
					for _, id := range ids {
						name := names[id]
						if name == "" {
							name = id
						}
						fmt.Fprintf(w, "  %-20s %d\n", name, st.BooksByCategory[id])
					}
				})
			})
		},
	}
}
