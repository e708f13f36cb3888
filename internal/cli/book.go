package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/library"
)

// NewBookCommand creates the book command group.
func NewBookCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage books, papers and articles",
	}
	cmd.AddCommand(newBookAddCommand(opts))
	cmd.AddCommand(newBookListCommand(opts))
	cmd.AddCommand(newBookShowCommand(opts))
	cmd.AddCommand(newBookRemoveCommand(opts))
	cmd.AddCommand(newBookAttachCommand(opts))
	cmd.AddCommand(newBookDetachCommand(opts))
	return cmd
}

func newBookAddCommand(opts *RootOptions) *cobra.Command {
	var (
		in                  domain.BookInput
		bookType, status    string
		rating, pages, page int
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = args[0]
			in.Type = domain.BookType(bookType)
			in.Status = domain.ReadingStatus(status)
			in.Rating = intFlag(cmd, "rating", rating)
			in.TotalPages = intFlag(cmd, "pages", pages)
			in.CurrentPage = intFlag(cmd, "page", page)

			return withSession(opts, func(ctx context.Context, s *session) error {
				book, err := s.lib.CreateBook(ctx, in)
				if err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(book, func(w io.Writer) {
					fmt.Fprintf(w, "Added %s %q (%s)\n", book.Type, book.Title, book.ID)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in.Author, "author", "a", "", "author")
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVarP(&bookType, "type", "t", "", "book, paper, article or other (default book)")
	f.StringVarP(&in.CategoryID, "category", "c", "", "category id")
	f.StringVar(&status, "status", "", "unread, reading or completed (default unread)")
	f.IntVar(&rating, "rating", 0, "rating from 1 to 5")
	f.IntVar(&pages, "pages", 0, "total pages")
	f.IntVar(&page, "page", 0, "current page")
	f.StringSliceVar(&in.Tags, "tags", nil, "comma-separated tags")

	return cmd
}

// intFlag returns a pointer to v when the flag was given explicitly.
func intFlag(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func newBookListCommand(opts *RootOptions) *cobra.Command {
	var (
		filter           domain.BookFilter
		bookType, status string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Type = domain.BookType(bookType)
			filter.Status = domain.ReadingStatus(status)

			return withSession(opts, func(_ context.Context, s *session) error {
				books := s.lib.FilterBooks(filter)
				return newOutput(opts, cmd).emit(books, func(w io.Writer) {
					if len(books) == 0 {
						fmt.Fprintln(w, "No books.")
						return
					}
					rows := make([][]string, 0, len(books))
					for _, b := range books {
						rows = append(rows, []string{b.ID, b.Title, orDash(b.Author), string(b.Type), string(b.Status), joinTags(b.Tags)})
					}
					table(w, "ID\tTITLE\tAUTHOR\tTYPE\tSTATUS\tTAGS", rows)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&filter.CategoryID, "category", "c", "", "category id")
	f.StringVar(&status, "status", "", "reading status")
	f.StringVarP(&bookType, "type", "t", "", "book type")
	f.StringSliceVar(&filter.Tags, "tag", nil, "required tag (repeatable)")
	f.StringVarP(&filter.Query, "query", "q", "", "case-insensitive text in title, author or description")

	return cmd
}

// bookDetail is a book with the records that hang off it.
type bookDetail struct {
	domain.Book
	Size           int64                  `json:"fileSize,omitempty"`
	PDFAnnotations []domain.PDFAnnotation `json:"pdfAnnotations"`
}

func newBookShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a book with its annotations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				book, ok := s.lib.GetBook(args[0])
				if !ok {
					return errors.NotFoundf("book %s not found", args[0])
				}
				detail := bookDetail{Book: *book, PDFAnnotations: s.lib.ListPDFAnnotations(book.ID)}
				if book.File != nil {
					if r, ok, err := s.lib.DownloadFile(ctx, book.File.BlobID); err == nil && ok {
						detail.Size = r.Size
					}
				}
				return newOutput(opts, cmd).emit(detail, func(w io.Writer) {
					printBook(w, &detail)
				})
			})
		},
	}
}

func printBook(w io.Writer, d *bookDetail) {
	fmt.Fprintf(w, "%s\n", d.Title)
	fmt.Fprintf(w, "  id:        %s\n", d.ID)
	fmt.Fprintf(w, "  author:    %s\n", orDash(d.Author))
	fmt.Fprintf(w, "  type:      %s\n", d.Type)
	fmt.Fprintf(w, "  category:  %s\n", d.CategoryID)
	fmt.Fprintf(w, "  status:    %s\n", d.Status)
	if d.Rating != nil {
		fmt.Fprintf(w, "  rating:    %d/5\n", *d.Rating)
	}
	if d.TotalPages != nil || d.CurrentPage != nil {
		fmt.Fprintf(w, "  progress:  %s of %s pages\n", optInt(d.CurrentPage), optInt(d.TotalPages))
	}
	fmt.Fprintf(w, "  tags:      %s\n", joinTags(d.Tags))
	if d.File != nil {
		view := ""
		if !d.File.FileType.Readable() {
			view = ", download only"
		}
		fmt.Fprintf(w, "  file:      %s (%s, %s%s)\n", d.File.FileName, d.File.FileType, humanize.Bytes(uint64(d.Size)), view)
	}
	fmt.Fprintf(w, "  updated:   %s\n", humanize.Time(d.UpdatedAt))
	if d.Description != "" {
		fmt.Fprintf(w, "\n%s\n", d.Description)
	}
	if len(d.Annotations) > 0 {
		fmt.Fprintf(w, "\nNotes (%d):\n", len(d.Annotations))
		for _, a := range d.Annotations {
			fmt.Fprintf(w, "  p.%d  %s\n", a.Page, a.Content)
		}
	}
	if len(d.PDFAnnotations) > 0 {
		fmt.Fprintf(w, "\nPDF annotations (%d):\n", len(d.PDFAnnotations))
		for _, a := range d.PDFAnnotations {
			fmt.Fprintf(w, "  p.%d  %s  %s\n", a.Page, a.Type, a.Content)
		}
	}
}

func optInt(p *int) string {
	if p == nil {
		return "?"
	}
	return strconv.Itoa(*p)
}

func newBookRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a book, its PDF annotations and its file",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				book, ok := s.lib.GetBook(args[0])
				if !ok {
					return errors.NotFoundf("book %s not found", args[0])
				}
				if err := s.lib.DeleteBook(ctx, book.ID); err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(map[string]string{"deleted": book.ID}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %q\n", book.Title)
				})
			})
		},
	}
}

func newBookAttachCommand(opts *RootOptions) *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Attach a file to a book, replacing any earlier one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1]) //#nosec G304 -- user-selected file
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}

			return withSession(opts, func(ctx context.Context, s *session) error {
				book, ok, err := s.lib.UploadFile(ctx, args[0], library.Upload{
					Name: filepath.Base(args[1]),
					Type: mimeType,
					Data: data,
				})
				if err != nil {
					return err
				}
				if !ok {
					return errors.NotFoundf("book %s not found", args[0])
				}
				return newOutput(opts, cmd).emit(book.File, func(w io.Writer) {
					fmt.Fprintf(w, "Attached %s (%s, %s) to %q\n", book.File.FileName, book.File.FileType,
						humanize.Bytes(uint64(len(data))), book.Title)
				})
			})
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (detected from content when omitted)")
	return cmd
}

func newBookDetachCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <id>",
		Short: "Remove a book's attached file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(ctx context.Context, s *session) error {
				book, ok := s.lib.GetBook(args[0])
				if !ok {
					return errors.NotFoundf("book %s not found", args[0])
				}
				if book.File == nil {
					return errors.Validationf("%q has no attached file", book.Title)
				}
				if err := s.lib.DeleteBookFile(ctx, book.ID); err != nil {
					return err
				}
				return newOutput(opts, cmd).emit(map[string]string{"detached": book.File.BlobID}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %s from %q\n", book.File.FileName, book.Title)
				})
			})
		},
	}
}
