package domain

import (
	"slices"
	"time"
)

// ProjectStatus tracks the lifecycle of a project.
type ProjectStatus string

// ProjectStatus values.
const (
	ProjectOngoing   ProjectStatus = "ongoing"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// LessonType grades a lesson learned.
type LessonType string

// LessonType values.
const (
	LessonSuccess LessonType = "success"
	LessonFailure LessonType = "failure"
	LessonWarning LessonType = "warning"
)

// Project groups knowledge, lessons and files around a piece of work.
type Project struct {
	Syncable
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ProjectStatus   `json:"status"`
	StartDate   string          `json:"startDate"`
	Tags        []string        `json:"tags"`
	Knowledge   []KnowledgeItem `json:"knowledge"`
	Lessons     []LessonItem    `json:"lessons"`
	Files       []ProjectFile   `json:"files"`
}

// KnowledgeItem is a piece of reference material captured in a project.
type KnowledgeItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// LessonItem is a lesson learned during a project.
type LessonItem struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      LessonType `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ProjectFile is a file attached to a project. The bytes live in the blob store.
type ProjectFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Size        int64     `json:"size"`
	Description string    `json:"description,omitempty"`
	BlobID      string    `json:"fileId"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// ProjectInput is the payload for creating a project.
type ProjectInput struct {
	Name        string        `json:"name" validate:"required,max=200"`
	Description string        `json:"description" validate:"max=10000"`
	Status      ProjectStatus `json:"status" validate:"omitempty,oneof=ongoing completed archived"`
	StartDate   string        `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	Tags        []string      `json:"tags"`
}

// ProjectPatch is a partial update of a project's scalar fields. The owned
// collections change through their own operations.
type ProjectPatch struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=10000"`
	Status      *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=ongoing completed archived"`
	StartDate   *string        `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Tags        *[]string      `json:"tags,omitempty"`
}

// KnowledgeInput is the payload for appending a knowledge item.
type KnowledgeInput struct {
	Title    string `json:"title" validate:"required,max=300"`
	Content  string `json:"content" validate:"max=50000"`
	Category string `json:"category" validate:"max=100"`
}

// LessonInput is the payload for appending a lesson.
type LessonInput struct {
	Title   string     `json:"title" validate:"required,max=300"`
	Content string     `json:"content" validate:"max=50000"`
	Type    LessonType `json:"type" validate:"required,oneof=success failure warning"`
}

// NewProject materializes a project from its create payload.
func NewProject(id string, in ProjectInput, now time.Time) *Project {
	p := &Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		Tags:        NormalizeTags(in.Tags),
		Knowledge:   []KnowledgeItem{},
		Lessons:     []LessonItem{},
		Files:       []ProjectFile{},
	}
	if p.Status == "" {
		p.Status = ProjectOngoing
	}
	if p.StartDate == "" {
		p.StartDate = now.Format(time.DateOnly)
	}
	p.ID = id
	p.InitTimestamps(now)
	return p
}

// Apply merges patch onto p and stamps UpdatedAt.
func (p *Project) Apply(patch ProjectPatch, now time.Time) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.StartDate != nil {
		p.StartDate = *patch.StartDate
	}
	if patch.Tags != nil {
		p.Tags = NormalizeTags(*patch.Tags)
	}
	p.Touch(now)
}

// Clone returns a copy that shares no mutable state with p.
func (p *Project) Clone() Project {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.Knowledge = slices.Clone(p.Knowledge)
	c.Lessons = slices.Clone(p.Lessons)
	c.Files = slices.Clone(p.Files)
	return c
}

// FindFile returns the index of the project file with the given id, or -1.
func (p *Project) FindFile(id string) int {
	return slices.IndexFunc(p.Files, func(f ProjectFile) bool { return f.ID == id })
}

// BlobIDs returns the blob references held by the project's files.
func (p *Project) BlobIDs() []string {
	ids := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		if f.BlobID != "" {
			ids = append(ids, f.BlobID)
		}
	}
	return ids
}
