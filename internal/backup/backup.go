package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/listenupapp/marginalia/internal/backup/stream"
	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/library"
	"github.com/listenupapp/marginalia/internal/logger"
)

// fileSuffix marks backup archives in the backup directory.
const fileSuffix = ".marginalia.zip"

// BackupService manages backup creation and listing.
type BackupService struct {
	lib       *library.Library
	backupDir string
	version   string
	clock     clock.Clock
	logger    *slog.Logger
}

// NewBackupService creates a BackupService.
func NewBackupService(lib *library.Library, backupDir, version string, clk clock.Clock, log *slog.Logger) *BackupService {
	if clk == nil {
		clk = clock.New()
	}
	return &BackupService{
		lib:       lib,
		backupDir: backupDir,
		version:   version,
		clock:     clk,
		logger:    logger.OrDiscard(log),
	}
}

// Create creates a new backup.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()

	// Ensure backup directory exists
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	// Generate output path if not specified
	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := s.clock.Now().Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, "backup-"+timestamp+fileSuffix)
	}

	s.logger.Info("creating backup",
		"output", outputPath,
		"include_blobs", opts.IncludeBlobs)

	// Write to temp file, rename on success (atomic)
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath) // Clean up on failure
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	snap := s.lib.Snapshot()
	manifest := &Manifest{
		Version:       FormatVersion,
		CreatedAt:     s.clock.Now(),
		DeviceID:      snap.Sync.DeviceID,
		AppVersion:    s.version,
		Counts:        snap.Counts(),
		IncludesBlobs: opts.IncludeBlobs,
	}

	if err := writeJSON(zw, snapshotFile, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	var missing []string
	if opts.IncludeBlobs {
		manifest.Blobs, missing, err = s.writeBlobs(ctx, zw, snap.BlobIDs())
		if err != nil {
			return nil, fmt.Errorf("export blobs: %w", err)
		}
	}

	// Write manifest last (has final counts)
	if err := writeJSON(zw, manifestFile, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	result := &BackupResult{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Blobs:    manifest.Blobs,
		Missing:  missing,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"blobs", result.Blobs,
		"missing_blobs", len(missing),
		"duration", result.Duration,
		"checksum", result.Checksum)

	return result, nil
}

// writeBlobs streams every referenced blob into the archive. Blobs that are
// referenced but absent locally (pulled from another device) are reported,
// not fatal.
func (s *BackupService) writeBlobs(ctx context.Context, zw *zip.Writer, ids []string) (int, []string, error) {
	w, err := stream.NewWriter[*blob.Record](zw, blobsFile)
	if err != nil {
		return 0, nil, err
	}

	var missing []string
	for _, id := range ids {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}

		rec, ok, err := s.lib.DownloadFile(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			missing = append(missing, id)
			continue
		}
		if err := w.Write(rec); err != nil {
			return 0, nil, fmt.Errorf("write blob %s: %w", id, err)
		}
	}
	return w.Count(), missing, nil
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// List returns all available backups.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), fileSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	// Sort by creation time, newest first
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get returns a backup by ID.
func (s *BackupService) Get(ctx context.Context, id string) (*BackupInfo, error) {
	path := s.GetPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	path := s.GetPath(id)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return err
	}

	return os.Remove(path)
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, id+fileSuffix)
}
