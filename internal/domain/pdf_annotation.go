package domain

import (
	"slices"
	"time"
)

// PDFAnnotationType distinguishes point notes from text highlights.
type PDFAnnotationType string

// PDFAnnotationType values.
const (
	PDFAnnotationNote      PDFAnnotationType = "note"
	PDFAnnotationHighlight PDFAnnotationType = "highlight"
)

// Point is a page-relative position; both coordinates are in [0, 1].
type Point struct {
	X float64 `json:"x" validate:"gte=0,lte=1"`
	Y float64 `json:"y" validate:"gte=0,lte=1"`
}

// Rect is a page-relative rectangle; all values are in [0, 1].
type Rect struct {
	X      float64 `json:"x" validate:"gte=0,lte=1"`
	Y      float64 `json:"y" validate:"gte=0,lte=1"`
	Width  float64 `json:"width" validate:"gte=0,lte=1"`
	Height float64 `json:"height" validate:"gte=0,lte=1"`
}

// PDFAnnotation is an overlay on one page of a book's attached PDF.
// Its lifetime is bounded by the owning book.
type PDFAnnotation struct {
	Syncable
	BookID   string            `json:"bookId"`
	Page     int               `json:"page"`
	Type     PDFAnnotationType `json:"type"`
	Position *Point            `json:"position,omitempty"`
	Rects    []Rect            `json:"rects,omitempty"`
	Content  string            `json:"content"`
	Color    string            `json:"color"`
}

// PDFAnnotationInput is the payload for creating a PDF annotation.
type PDFAnnotationInput struct {
	BookID   string            `json:"bookId" validate:"required"`
	Page     int               `json:"page" validate:"min=1"`
	Type     PDFAnnotationType `json:"type" validate:"omitempty,oneof=note highlight"`
	Position *Point            `json:"position" validate:"omitempty"`
	Rects    []Rect            `json:"rects" validate:"dive"`
	Content  string            `json:"content" validate:"max=20000"`
	Color    string            `json:"color" validate:"omitempty,hexcolor"`
}

// PDFAnnotationPatch is a partial update of a PDF annotation.
type PDFAnnotationPatch struct {
	Content  *string `json:"content,omitempty" validate:"omitempty,max=20000"`
	Color    *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Position *Point  `json:"position,omitempty"`
	Rects    *[]Rect `json:"rects,omitempty"`
}

// NewPDFAnnotation materializes an annotation from its create payload.
func NewPDFAnnotation(id string, in PDFAnnotationInput, now time.Time) *PDFAnnotation {
	a := &PDFAnnotation{
		BookID:  in.BookID,
		Page:    in.Page,
		Type:    in.Type,
		Rects:   slices.Clone(in.Rects),
		Content: in.Content,
		Color:   in.Color,
	}
	if in.Position != nil {
		p := *in.Position
		a.Position = &p
	}
	if a.Type == "" {
		if len(a.Rects) > 0 {
			a.Type = PDFAnnotationHighlight
		} else {
			a.Type = PDFAnnotationNote
		}
	}
	if a.Color == "" {
		a.Color = "#facc15"
	}
	a.ID = id
	a.InitTimestamps(now)
	return a
}

// Apply merges p onto a and stamps UpdatedAt.
func (a *PDFAnnotation) Apply(p PDFAnnotationPatch, now time.Time) {
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.Position != nil {
		pos := *p.Position
		a.Position = &pos
	}
	if p.Rects != nil {
		a.Rects = slices.Clone(*p.Rects)
	}
	a.Touch(now)
}

// Clone returns a copy that shares no mutable state with a.
func (a *PDFAnnotation) Clone() PDFAnnotation {
	c := *a
	c.Rects = slices.Clone(a.Rects)
	if a.Position != nil {
		p := *a.Position
		c.Position = &p
	}
	return c
}
