package domain

import "time"

// Syncable provides common fields for entities that participate in synchronization.
// It is embedded in every collection type so merges can treat them uniformly.
type Syncable struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch sets UpdatedAt to now.
// Call this on every update, even when no field changed value.
func (s *Syncable) Touch(now time.Time) {
	s.UpdatedAt = now
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (s *Syncable) InitTimestamps(now time.Time) {
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Key returns the identity and version used by last-writer-wins merges.
func (s Syncable) Key() (string, time.Time) {
	return s.ID, s.UpdatedAt
}
