package domain

// Stats is the dashboard summary of a library.
type Stats struct {
	TotalBooks       int            `json:"totalBooks"`
	CompletedBooks   int            `json:"completedBooks"`
	ReadingBooks     int            `json:"readingBooks"`
	UnreadBooks      int            `json:"unreadBooks"`
	TotalAnnotations int            `json:"totalAnnotations"`
	BooksByCategory  map[string]int `json:"booksByCategory"`
	TotalProjects    int            `json:"totalProjects"`
	TotalNotes       int            `json:"totalNotes"`
	PendingTodos     int            `json:"pendingTodos"`
}

// CompletionRate returns the share of books marked completed, in [0, 1].
func (s Stats) CompletionRate() float64 {
	if s.TotalBooks == 0 {
		return 0
	}
	return float64(s.CompletedBooks) / float64(s.TotalBooks)
}
