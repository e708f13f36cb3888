package domain

import (
	"time"

	"github.com/listenupapp/marginalia/internal/color"
)

// Seed category ids. They exist in every fresh library and the presentation
// layer refuses to delete them; the store itself deletes any id it is asked to.
const (
	CategoryBook    = "cat-book"
	CategoryPaper   = "cat-paper"
	CategoryArticle = "cat-article"
	CategoryOther   = "cat-other"
)

// Category groups books for display.
type Category struct {
	Syncable
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// CategoryPatch is a partial update of a category.
type CategoryPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// NewCategory materializes a category from its create payload.
func NewCategory(id string, in CategoryInput, now time.Time) *Category {
	c := &Category{Name: in.Name, Color: in.Color}
	if c.Color == "" {
		c.Color = color.ForName(in.Name)
	}
	c.ID = id
	c.InitTimestamps(now)
	return c
}

// Apply merges p onto c and stamps UpdatedAt.
func (c *Category) Apply(p CategoryPatch, now time.Time) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	c.Touch(now)
}

// DefaultCategories returns the seed categories of a new library. Their
// timestamps are zero so that any edit on any device wins a merge.
func DefaultCategories() []Category {
	return []Category{
		{Syncable: Syncable{ID: CategoryBook}, Name: "Books", Color: "#3b82f6"},
		{Syncable: Syncable{ID: CategoryPaper}, Name: "Papers", Color: "#10b981"},
		{Syncable: Syncable{ID: CategoryArticle}, Name: "Articles", Color: "#f59e0b"},
		{Syncable: Syncable{ID: CategoryOther}, Name: "Other", Color: "#6b7280"},
	}
}

// IsSeedCategory reports whether id is one of the default categories.
func IsSeedCategory(id string) bool {
	switch id {
	case CategoryBook, CategoryPaper, CategoryArticle, CategoryOther:
		return true
	default:
		return false
	}
}
