package library

import (
	"context"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/id"
	"github.com/listenupapp/marginalia/internal/query"
)

// CreatePDFAnnotation adds an overlay annotation. The owning book is not
// required to exist; annotations of a deleted book are removed with it.
func (l *Library) CreatePDFAnnotation(ctx context.Context, in domain.PDFAnnotationInput) (*domain.PDFAnnotation, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, err
	}
	annID, err := newID(id.PrefixPDFAnnotation)
	if err != nil {
		return nil, err
	}

	var created domain.PDFAnnotation
	if _, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		a := domain.NewPDFAnnotation(annID, in, l.clock.Now())
		s.PDFAnnotations = append(s.PDFAnnotations, *a)
		created = a.Clone()
		return true, nil, nil
	}); err != nil {
		return &created, err
	}
	return &created, nil
}

// GetPDFAnnotation returns the annotation with the given id.
func (l *Library) GetPDFAnnotation(annotationID string) (*domain.PDFAnnotation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.snap.FindPDFAnnotation(annotationID)
	if i < 0 {
		return nil, false
	}
	a := l.snap.PDFAnnotations[i].Clone()
	return &a, true
}

// ListPDFAnnotations returns a book's annotations ordered by page.
func (l *Library) ListPDFAnnotations(bookID string) []domain.PDFAnnotation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return query.PDFAnnotations(l.snap, bookID)
}

// UpdatePDFAnnotation merges p onto the annotation. ok is false if it does not exist.
func (l *Library) UpdatePDFAnnotation(ctx context.Context, annotationID string, p domain.PDFAnnotationPatch) (*domain.PDFAnnotation, bool, error) {
	if err := l.validate.Validate(p); err != nil {
		return nil, false, err
	}
	var updated domain.PDFAnnotation
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindPDFAnnotation(annotationID)
		if i < 0 {
			return false, nil, nil
		}
		a := &s.PDFAnnotations[i]
		a.Apply(p, l.next(a.UpdatedAt))
		updated = a.Clone()
		return true, nil, nil
	})
	if !found {
		return nil, false, err
	}
	return &updated, true, err
}

// DeletePDFAnnotation removes the annotation. Missing ids are a no-op.
func (l *Library) DeletePDFAnnotation(ctx context.Context, annotationID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindPDFAnnotation(annotationID)
		if i < 0 {
			return false, nil, nil
		}
		s.PDFAnnotations = append(s.PDFAnnotations[:i], s.PDFAnnotations[i+1:]...)
		return true, nil, nil
	})
	return err
}
