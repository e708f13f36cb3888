package domain

import (
	"slices"
	"time"
)

// NoteType distinguishes plain notes from todos and scheduled items.
type NoteType string

// NoteType values.
const (
	NoteTypeTodo     NoteType = "todo"
	NoteTypeNote     NoteType = "note"
	NoteTypeSchedule NoteType = "schedule"
)

// Priority orders notes.
type Priority string

// Priority values.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Note is a note, todo or scheduled item.
type Note struct {
	Syncable
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Type        NoteType   `json:"type"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NoteInput is the payload for creating a note.
type NoteInput struct {
	Title    string     `json:"title" validate:"required,max=300"`
	Content  string     `json:"content" validate:"max=50000"`
	Type     NoteType   `json:"type" validate:"omitempty,oneof=todo note schedule"`
	Priority Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate  *time.Time `json:"dueDate"`
	Tags     []string   `json:"tags"`
}

// NotePatch is a partial update of a note. Completion changes only through Toggle.
type NotePatch struct {
	Title    *string    `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	Content  *string    `json:"content,omitempty" validate:"omitempty,max=50000"`
	Type     *NoteType  `json:"type,omitempty" validate:"omitempty,oneof=todo note schedule"`
	Priority *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
	ClearDue bool       `json:"clearDueDate,omitempty"`
	Tags     *[]string  `json:"tags,omitempty"`
}

// NewNote materializes a note from its create payload.
func NewNote(id string, in NoteInput, now time.Time) *Note {
	n := &Note{
		Title:    in.Title,
		Content:  in.Content,
		Type:     in.Type,
		Priority: in.Priority,
		Tags:     NormalizeTags(in.Tags),
	}
	if n.Type == "" {
		n.Type = NoteTypeNote
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		n.DueDate = &d
	}
	n.ID = id
	n.InitTimestamps(now)
	return n
}

// Apply merges p onto n and stamps UpdatedAt.
func (n *Note) Apply(p NotePatch, now time.Time) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.Priority != nil {
		n.Priority = *p.Priority
	}
	switch {
	case p.ClearDue:
		n.DueDate = nil
	case p.DueDate != nil:
		d := p.DueDate.UTC()
		n.DueDate = &d
	}
	if p.Tags != nil {
		n.Tags = NormalizeTags(*p.Tags)
	}
	n.Touch(now)
}

// Toggle flips completion. Completing stamps CompletedAt; un-completing
// leaves the previous CompletedAt in place as history.
func (n *Note) Toggle(now time.Time) {
	n.Completed = !n.Completed
	if n.Completed {
		t := now
		n.CompletedAt = &t
	}
	n.Touch(now)
}

// Pending reports whether n is an unfinished todo.
func (n *Note) Pending() bool {
	return n.Type == NoteTypeTodo && !n.Completed
}

// Clone returns a copy that shares no mutable state with n.
func (n *Note) Clone() Note {
	c := *n
	c.Tags = slices.Clone(n.Tags)
	if n.DueDate != nil {
		d := *n.DueDate
		c.DueDate = &d
	}
	if n.CompletedAt != nil {
		d := *n.CompletedAt
		c.CompletedAt = &d
	}
	return c
}
