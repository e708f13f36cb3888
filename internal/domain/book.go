// Package domain contains the entities of a Marginalia library: books and
// their annotations, categories, projects, notes, and the sync metadata that
// travels with them.
package domain

import (
	"slices"
	"time"
)

// BookType classifies a reading item.
type BookType string

// BookType values.
const (
	BookTypeBook    BookType = "book"
	BookTypePaper   BookType = "paper"
	BookTypeArticle BookType = "article"
	BookTypeOther   BookType = "other"
)

// ReadingStatus tracks progress through a book.
type ReadingStatus string

// ReadingStatus values.
const (
	StatusUnread    ReadingStatus = "unread"
	StatusReading   ReadingStatus = "reading"
	StatusCompleted ReadingStatus = "completed"
)

// Book is a reading item in the library.
//
// CurrentPage may exceed TotalPages; the store does not enforce page bounds.
type Book struct {
	Syncable
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Description string        `json:"description,omitempty"`
	Type        BookType      `json:"type"`
	CategoryID  string        `json:"categoryId"`
	Status      ReadingStatus `json:"status"`
	Rating      *int          `json:"rating,omitempty"`
	TotalPages  *int          `json:"totalPages,omitempty"`
	CurrentPage *int          `json:"currentPage,omitempty"`
	Tags        []string      `json:"tags"`
	File        *FileRef      `json:"file,omitempty"`
	Annotations []Annotation  `json:"annotations"`
}

// FileRef points a book at its attached file in the blob store.
type FileRef struct {
	BlobID   string   `json:"fileId"`
	FileType FileType `json:"fileType"`
	FileName string   `json:"fileName"`
}

// Annotation is a free-text note tied to a page of a book. It lives inside
// the book record and is unrelated to PDF overlay annotations.
type Annotation struct {
	ID        string    `json:"id"`
	Page      int       `json:"page"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookInput is the payload for creating a book.
type BookInput struct {
	Title       string        `json:"title" validate:"required,max=500"`
	Author      string        `json:"author" validate:"max=300"`
	Description string        `json:"description" validate:"max=10000"`
	Type        BookType      `json:"type" validate:"omitempty,oneof=book paper article other"`
	CategoryID  string        `json:"categoryId"`
	Status      ReadingStatus `json:"status" validate:"omitempty,oneof=unread reading completed"`
	Rating      *int          `json:"rating" validate:"omitempty,min=1,max=5"`
	TotalPages  *int          `json:"totalPages" validate:"omitempty,min=0"`
	CurrentPage *int          `json:"currentPage" validate:"omitempty,min=0"`
	Tags        []string      `json:"tags"`
}

// BookPatch is a partial update. Nil fields are left untouched.
// For Rating, TotalPages and CurrentPage a pointer to zero clears the value.
type BookPatch struct {
	Title       *string        `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Author      *string        `json:"author,omitempty" validate:"omitempty,max=300"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=10000"`
	Type        *BookType      `json:"type,omitempty" validate:"omitempty,oneof=book paper article other"`
	CategoryID  *string        `json:"categoryId,omitempty" validate:"omitempty,min=1"`
	Status      *ReadingStatus `json:"status,omitempty" validate:"omitempty,oneof=unread reading completed"`
	Rating      *int           `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	TotalPages  *int           `json:"totalPages,omitempty" validate:"omitempty,min=0"`
	CurrentPage *int           `json:"currentPage,omitempty" validate:"omitempty,min=0"`
	Tags        *[]string      `json:"tags,omitempty"`
}

// NewBook materializes a book from its create payload.
func NewBook(id string, in BookInput, now time.Time) *Book {
	b := &Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		Status:      in.Status,
		Rating:      optionalInt(in.Rating),
		TotalPages:  optionalInt(in.TotalPages),
		CurrentPage: optionalInt(in.CurrentPage),
		Tags:        NormalizeTags(in.Tags),
		Annotations: []Annotation{},
	}
	if b.Type == "" {
		b.Type = BookTypeBook
	}
	if b.Status == "" {
		b.Status = StatusUnread
	}
	b.ID = id
	b.InitTimestamps(now)
	return b
}

// Apply merges p onto b and stamps UpdatedAt, whether or not anything changed.
func (b *Book) Apply(p BookPatch, now time.Time) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Type != nil {
		b.Type = *p.Type
	}
	if p.CategoryID != nil {
		b.CategoryID = *p.CategoryID
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.Rating != nil {
		b.Rating = optionalInt(p.Rating)
	}
	if p.TotalPages != nil {
		b.TotalPages = optionalInt(p.TotalPages)
	}
	if p.CurrentPage != nil {
		b.CurrentPage = optionalInt(p.CurrentPage)
	}
	if p.Tags != nil {
		b.Tags = NormalizeTags(*p.Tags)
	}
	b.Touch(now)
}

// Clone returns a copy that shares no mutable state with b.
func (b *Book) Clone() Book {
	c := *b
	c.Rating = cloneInt(b.Rating)
	c.TotalPages = cloneInt(b.TotalPages)
	c.CurrentPage = cloneInt(b.CurrentPage)
	c.Tags = slices.Clone(b.Tags)
	c.Annotations = slices.Clone(b.Annotations)
	if b.File != nil {
		f := *b.File
		c.File = &f
	}
	return c
}

// FindAnnotation returns the index of the annotation with the given id, or -1.
func (b *Book) FindAnnotation(id string) int {
	return slices.IndexFunc(b.Annotations, func(a Annotation) bool { return a.ID == id })
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// optionalInt treats zero as "unset".
func optionalInt(p *int) *int {
	if p == nil || *p == 0 {
		return nil
	}
	v := *p
	return &v
}

// AnnotationInput is the payload for adding a page note to a book.
type AnnotationInput struct {
	Page    int    `json:"page" validate:"min=0"`
	Content string `json:"content" validate:"required,max=20000"`
}
