package library

import (
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/query"
)

// Tags returns all distinct book tags, sorted.
func (l *Library) Tags() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return query.Tags(l.snap)
}

// Stats returns dashboard counts, computed from the current state.
func (l *Library) Stats() domain.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return query.Stats(l.snap)
}

// Counts returns the size of each collection.
func (l *Library) Counts() domain.EntityCounts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.Counts()
}
