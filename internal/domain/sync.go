package domain

import "time"

// SyncStatus is the state of the most recent exchange with another device.
type SyncStatus string

// SyncStatus values.
const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

// SyncState is the per-installation sync metadata. There is one per library.
type SyncState struct {
	DeviceID   string     `json:"deviceId"`
	SyncCode   string     `json:"syncCode"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	Status     SyncStatus `json:"status"`
}

// Clone returns a copy that shares no mutable state with s.
func (s SyncState) Clone() SyncState {
	if s.LastSyncAt != nil {
		t := *s.LastSyncAt
		s.LastSyncAt = &t
	}
	return s
}

// Payload is what a device publishes under its sync code.
type Payload struct {
	Data      Snapshot  `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"deviceId"`
}
