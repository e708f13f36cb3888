package backup

import (
	"time"

	"github.com/listenupapp/marginalia/internal/domain"
)

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Archive entry names.
const (
	manifestFile = "manifest.json"
	snapshotFile = "snapshot.json"
	blobsFile    = "blobs.jsonl"
)

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	// Device identity
	DeviceID   string `json:"device_id"`
	AppVersion string `json:"app_version"`

	// Content summary
	Counts domain.EntityCounts `json:"counts"`
	Blobs  int                 `json:"blobs"`

	IncludesBlobs bool `json:"includes_blobs"`
}
