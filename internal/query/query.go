// Package query computes derived views over a library snapshot: filtered
// book lists, the tag index and dashboard statistics. Nothing is cached;
// every call walks the snapshot it is given.
package query

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/listenupapp/marginalia/internal/domain"
)

// Filter returns the books matching every criterion set in f, in snapshot order.
// Query matches case-insensitively as a substring of the title, author,
// description or any tag. Every tag in f.Tags must be present on the book.
func Filter(snap *domain.Snapshot, f domain.BookFilter) []domain.Book {
	out := make([]domain.Book, 0, len(snap.Books))
	if f.IsEmpty() {
		for i := range snap.Books {
			out = append(out, snap.Books[i].Clone())
		}
		return out
	}

	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(f.Query))
	required := domain.NormalizeTags(f.Tags)

	for i := range snap.Books {
		b := &snap.Books[i]
		if f.CategoryID != "" && b.CategoryID != f.CategoryID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Type != "" && b.Type != f.Type {
			continue
		}
		if !hasAllTags(b.Tags, required) {
			continue
		}
		if q != "" && !matchesText(fold, b, q) {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

func hasAllTags(tags, required []string) bool {
	for _, t := range required {
		if !domain.HasTag(tags, t) {
			return false
		}
	}
	return true
}

func matchesText(fold cases.Caser, b *domain.Book, q string) bool {
	if strings.Contains(fold.String(b.Title), q) ||
		strings.Contains(fold.String(b.Author), q) ||
		strings.Contains(fold.String(b.Description), q) {
		return true
	}
	for _, t := range b.Tags {
		if strings.Contains(fold.String(t), q) {
			return true
		}
	}
	return false
}

// Tags returns every distinct book tag, sorted lexicographically.
func Tags(snap *domain.Snapshot) []string {
	seen := make(map[string]struct{})
	for i := range snap.Books {
		for _, t := range snap.Books[i].Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// SortTagsForDisplay orders tags the way a reader expects in the given
// language, ignoring case. Tags keeps the byte-wise order.
func SortTagsForDisplay(tags []string, lang language.Tag) []string {
	out := slices.Clone(tags)
	collate.New(lang, collate.IgnoreCase).SortStrings(out)
	return out
}

// Stats aggregates counts over the snapshot in one pass per collection.
func Stats(snap *domain.Snapshot) domain.Stats {
	s := domain.Stats{
		TotalBooks:      len(snap.Books),
		BooksByCategory: make(map[string]int),
		TotalProjects:   len(snap.Projects),
		TotalNotes:      len(snap.Notes),
	}
	for i := range snap.Books {
		b := &snap.Books[i]
		switch b.Status {
		case domain.StatusCompleted:
			s.CompletedBooks++
		case domain.StatusReading:
			s.ReadingBooks++
		case domain.StatusUnread:
			s.UnreadBooks++
		}
		s.TotalAnnotations += len(b.Annotations)
		s.BooksByCategory[b.CategoryID]++
	}
	for i := range snap.Notes {
		if snap.Notes[i].Pending() {
			s.PendingTodos++
		}
	}
	return s
}

// PDFAnnotations returns the PDF annotations of one book ordered by page,
// then creation time.
func PDFAnnotations(snap *domain.Snapshot, bookID string) []domain.PDFAnnotation {
	var out []domain.PDFAnnotation
	for i := range snap.PDFAnnotations {
		if snap.PDFAnnotations[i].BookID == bookID {
			out = append(out, snap.PDFAnnotations[i].Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b domain.PDFAnnotation) int {
		if a.Page != b.Page {
			return a.Page - b.Page
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
