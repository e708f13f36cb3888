package domain

// BookFilter selects books. Empty fields match everything; set fields
// combine with AND.
type BookFilter struct {
	CategoryID string        `json:"categoryId,omitempty"`
	Status     ReadingStatus `json:"status,omitempty"`
	Type       BookType      `json:"type,omitempty"`
	Tags       []string      `json:"tags,omitempty"`
	Query      string        `json:"query,omitempty"`
}

// IsEmpty reports whether f matches every book.
func (f BookFilter) IsEmpty() bool {
	return f.CategoryID == "" && f.Status == "" && f.Type == "" && len(f.Tags) == 0 && f.Query == ""
}
