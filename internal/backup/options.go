package backup

import (
	"time"

	"github.com/listenupapp/marginalia/internal/domain"
)

// BackupOptions configures backup creation.
type BackupOptions struct {
	IncludeBlobs bool   // Include attached file contents
	OutputPath   string // Where to write the backup file
}

// DefaultBackupOptions returns sensible defaults.
func DefaultBackupOptions() BackupOptions {
	return BackupOptions{
		IncludeBlobs: true,
	}
}

// RestoreOptions configures restoration.
type RestoreOptions struct {
	Mode   RestoreMode
	DryRun bool // Validate without writing
}

// RestoreMode determines how to handle existing data.
type RestoreMode string

const (
	// RestoreModeFull replaces every collection with the backup's.
	RestoreModeFull RestoreMode = "full"

	// RestoreModeMerge merges the backup into existing data, newest record wins.
	RestoreModeMerge RestoreMode = "merge"
)

// Valid returns true if the restore mode is recognized.
func (m RestoreMode) Valid() bool {
	switch m {
	case RestoreModeFull, RestoreModeMerge:
		return true
	default:
		return false
	}
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string              `json:"path"`
	Size     int64               `json:"size"`
	Counts   domain.EntityCounts `json:"counts"`
	Blobs    int                 `json:"blobs"`
	Missing  []string            `json:"missing_blobs,omitempty"`
	Duration time.Duration       `json:"duration"`
	Checksum string              `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Mode          RestoreMode         `json:"mode"`
	DryRun        bool                `json:"dry_run"`
	Before        domain.EntityCounts `json:"before"`
	After         domain.EntityCounts `json:"after"`
	BlobsRestored int                 `json:"blobs_restored"`
	BlobsSkipped  int                 `json:"blobs_skipped"`
	Errors        []RestoreError      `json:"errors,omitempty"`
	Duration      time.Duration       `json:"duration"`
}

// RestoreError describes a non-fatal error during restore.
type RestoreError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Manifest *Manifest `json:"manifest,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}
