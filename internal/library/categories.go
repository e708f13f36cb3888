package library

import (
	"context"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/id"
)

// CreateCategory adds a category.
func (l *Library) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, err
	}
	catID, err := newID(id.PrefixCategory)
	if err != nil {
		return nil, err
	}

	var created domain.Category
	if _, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		created = *domain.NewCategory(catID, in, l.clock.Now())
		s.Categories = append(s.Categories, created)
		return true, nil, nil
	}); err != nil {
		return &created, err
	}
	return &created, nil
}

// GetCategory returns the category with the given id.
func (l *Library) GetCategory(categoryID string) (*domain.Category, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.snap.FindCategory(categoryID)
	if i < 0 {
		return nil, false
	}
	c := l.snap.Categories[i]
	return &c, true
}

// ListCategories returns all categories in library order.
func (l *Library) ListCategories() []domain.Category {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Category(nil), l.snap.Categories...)
}

// UpdateCategory merges p onto the category. ok is false if it does not exist.
func (l *Library) UpdateCategory(ctx context.Context, categoryID string, p domain.CategoryPatch) (*domain.Category, bool, error) {
	if err := l.validate.Validate(p); err != nil {
		return nil, false, err
	}
	var updated domain.Category
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindCategory(categoryID)
		if i < 0 {
			return false, nil, nil
		}
		c := &s.Categories[i]
		c.Apply(p, l.next(c.UpdatedAt))
		updated = *c
		return true, nil, nil
	})
	if !found {
		return nil, false, err
	}
	return &updated, true, err
}

// DeleteCategory removes the category and moves its books to the fallback
// category. Any id may be deleted, seed categories included; refusing to
// delete seeds is the caller's policy (see domain.IsSeedCategory).
func (l *Library) DeleteCategory(ctx context.Context, categoryID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		removed, moved := domain.RemoveCategory(s, categoryID, l.fallback, l.next)
		if moved > 0 {
			l.logger.Info("re-homed books of deleted category",
				"category_id", categoryID, "fallback", l.fallback, "books", moved)
		}
		return removed || moved > 0, nil, nil
	})
	return err
}
