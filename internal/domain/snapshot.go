package domain

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the complete state of a library: all five collections plus
// sync metadata. It is also the persisted document and the exchange format.
type Snapshot struct {
	Books          []Book          `json:"books"`
	Categories     []Category      `json:"categories"`
	PDFAnnotations []PDFAnnotation `json:"pdfAnnotations"`
	Projects       []Project       `json:"projects"`
	Notes          []Note          `json:"notes"`
	Sync           SyncState       `json:"sync"`
}

// EntityCounts summarizes the size of a snapshot.
type EntityCounts struct {
	Books          int `json:"books"`
	Categories     int `json:"categories"`
	PDFAnnotations int `json:"pdfAnnotations"`
	Projects       int `json:"projects"`
	Notes          int `json:"notes"`
}

// NewSnapshot returns an empty library with the seed categories and the
// given sync identity.
func NewSnapshot(deviceID, syncCode string) *Snapshot {
	return &Snapshot{
		Books:          []Book{},
		Categories:     DefaultCategories(),
		PDFAnnotations: []PDFAnnotation{},
		Projects:       []Project{},
		Notes:          []Note{},
		Sync: SyncState{
			DeviceID: deviceID,
			SyncCode: syncCode,
			Status:   SyncIdle,
		},
	}
}

// Counts returns the number of records in each collection.
func (s *Snapshot) Counts() EntityCounts {
	return EntityCounts{
		Books:          len(s.Books),
		Categories:     len(s.Categories),
		PDFAnnotations: len(s.PDFAnnotations),
		Projects:       len(s.Projects),
		Notes:          len(s.Notes),
	}
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Books:          make([]Book, len(s.Books)),
		Categories:     append([]Category(nil), s.Categories...),
		PDFAnnotations: make([]PDFAnnotation, len(s.PDFAnnotations)),
		Projects:       make([]Project, len(s.Projects)),
		Notes:          make([]Note, len(s.Notes)),
		Sync:           s.Sync.Clone(),
	}
	if c.Categories == nil {
		c.Categories = []Category{}
	}
	for i := range s.Books {
		c.Books[i] = s.Books[i].Clone()
	}
	for i := range s.PDFAnnotations {
		c.PDFAnnotations[i] = s.PDFAnnotations[i].Clone()
	}
	for i := range s.Projects {
		c.Projects[i] = s.Projects[i].Clone()
	}
	for i := range s.Notes {
		c.Notes[i] = s.Notes[i].Clone()
	}
	return c
}

// Normalize replaces nil collections with empty ones so that encoded
// documents always carry arrays.
func (s *Snapshot) Normalize() {
	if s.Books == nil {
		s.Books = []Book{}
	}
	if s.Categories == nil {
		s.Categories = []Category{}
	}
	if s.PDFAnnotations == nil {
		s.PDFAnnotations = []PDFAnnotation{}
	}
	if s.Projects == nil {
		s.Projects = []Project{}
	}
	if s.Notes == nil {
		s.Notes = []Note{}
	}
	for i := range s.Books {
		if s.Books[i].Tags == nil {
			s.Books[i].Tags = []string{}
		}
		if s.Books[i].Annotations == nil {
			s.Books[i].Annotations = []Annotation{}
		}
	}
	for i := range s.Projects {
		p := &s.Projects[i]
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if p.Knowledge == nil {
			p.Knowledge = []KnowledgeItem{}
		}
		if p.Lessons == nil {
			p.Lessons = []LessonItem{}
		}
		if p.Files == nil {
			p.Files = []ProjectFile{}
		}
	}
	for i := range s.Notes {
		if s.Notes[i].Tags == nil {
			s.Notes[i].Tags = []string{}
		}
	}
	if s.Sync.Status == "" {
		s.Sync.Status = SyncIdle
	}
}

// Encode serializes s as the persisted JSON document.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a persisted document. Every collection key must be
// present; a document missing any of them is rejected rather than guessed at.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for _, key := range []string{"books", "categories", "pdfAnnotations", "projects", "notes"} {
		raw, ok := shape[key]
		if !ok {
			return nil, fmt.Errorf("decode snapshot: missing %q", key)
		}
		if len(raw) == 0 || raw[0] != '[' {
			if string(raw) != "null" {
				return nil, fmt.Errorf("decode snapshot: %q is not an array", key)
			}
		}
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return &s, nil
}

// FindBook returns the index of the book with the given id, or -1.
func (s *Snapshot) FindBook(id string) int {
	for i := range s.Books {
		if s.Books[i].ID == id {
			return i
		}
	}
	return -1
}

// FindCategory returns the index of the category with the given id, or -1.
func (s *Snapshot) FindCategory(id string) int {
	for i := range s.Categories {
		if s.Categories[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPDFAnnotation returns the index of the PDF annotation with the given id, or -1.
func (s *Snapshot) FindPDFAnnotation(id string) int {
	for i := range s.PDFAnnotations {
		if s.PDFAnnotations[i].ID == id {
			return i
		}
	}
	return -1
}

// FindProject returns the index of the project with the given id, or -1.
func (s *Snapshot) FindProject(id string) int {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

// FindNote returns the index of the note with the given id, or -1.
func (s *Snapshot) FindNote(id string) int {
	for i := range s.Notes {
		if s.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

// BlobIDs returns every blob id referenced by the snapshot.
func (s *Snapshot) BlobIDs() []string {
	var ids []string
	for i := range s.Books {
		if f := s.Books[i].File; f != nil && f.BlobID != "" {
			ids = append(ids, f.BlobID)
		}
	}
	for i := range s.Projects {
		ids = append(ids, s.Projects[i].BlobIDs()...)
	}
	return ids
}
