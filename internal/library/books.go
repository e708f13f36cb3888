package library

import (
	"context"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/id"
	"github.com/listenupapp/marginalia/internal/query"
)

// CreateBook adds a book. A book without a category goes to the fallback
// category.
func (l *Library) CreateBook(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, err
	}
	bookID, err := newID(id.PrefixBook)
	if err != nil {
		return nil, err
	}
	if in.CategoryID == "" {
		in.CategoryID = l.fallback
	}

	var created domain.Book
	if _, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		b := domain.NewBook(bookID, in, l.clock.Now())
		s.Books = append(s.Books, *b)
		created = b.Clone()
		return true, nil, nil
	}); err != nil {
		return &created, err
	}
	return &created, nil
}

// GetBook returns the book with the given id.
func (l *Library) GetBook(bookID string) (*domain.Book, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.snap.FindBook(bookID)
	if i < 0 {
		return nil, false
	}
	b := l.snap.Books[i].Clone()
	return &b, true
}

// ListBooks returns all books in library order.
func (l *Library) ListBooks() []domain.Book {
	return l.FilterBooks(domain.BookFilter{})
}

// FilterBooks returns the books matching f.
func (l *Library) FilterBooks(f domain.BookFilter) []domain.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return query.Filter(l.snap, f)
}

// UpdateBook merges p onto the book and always advances its UpdatedAt.
// ok is false if the book does not exist.
func (l *Library) UpdateBook(ctx context.Context, bookID string, p domain.BookPatch) (*domain.Book, bool, error) {
	if err := l.validate.Validate(p); err != nil {
		return nil, false, err
	}
	var updated domain.Book
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindBook(bookID)
		if i < 0 {
			return false, nil, nil
		}
		b := &s.Books[i]
		b.Apply(p, l.next(b.UpdatedAt))
		updated = b.Clone()
		return true, nil, nil
	})
	if !found {
		return nil, false, err
	}
	return &updated, true, err
}

// DeleteBook removes the book, its PDF annotations and its attached file.
// Deleting a missing id is a no-op.
func (l *Library) DeleteBook(ctx context.Context, bookID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		removed, blobs := domain.RemoveBook(s, bookID)
		return removed, blobs, nil
	})
	if err == nil {
		l.logger.Debug("book deleted", "book_id", bookID)
	}
	return err
}

// AddBookAnnotation appends a page note to a book. ok is false if the book
// does not exist.
func (l *Library) AddBookAnnotation(ctx context.Context, bookID string, in domain.AnnotationInput) (*domain.Annotation, bool, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, false, err
	}
	annID, err := newID(id.PrefixAnnotation)
	if err != nil {
		return nil, false, err
	}

	var added domain.Annotation
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindBook(bookID)
		if i < 0 {
			return false, nil, nil
		}
		b := &s.Books[i]
		now := l.next(b.UpdatedAt)
		added = domain.Annotation{ID: annID, Page: in.Page, Content: in.Content, CreatedAt: now}
		b.Annotations = append(b.Annotations, added)
		b.Touch(now)
		return true, nil, nil
	})
	if !found {
		return nil, false, err
	}
	return &added, true, err
}

// DeleteBookAnnotation removes a page note. Missing ids are a no-op.
func (l *Library) DeleteBookAnnotation(ctx context.Context, bookID, annotationID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindBook(bookID)
		if i < 0 {
			return false, nil, nil
		}
		b := &s.Books[i]
		j := b.FindAnnotation(annotationID)
		if j < 0 {
			return false, nil, nil
		}
		b.Annotations = append(b.Annotations[:j], b.Annotations[j+1:]...)
		b.Touch(l.next(b.UpdatedAt))
		return true, nil, nil
	})
	return err
}
