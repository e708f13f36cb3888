package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/listenupapp/marginalia/internal/backup/stream"
	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/library"
	"github.com/listenupapp/marginalia/internal/logger"
)

// RestoreService restores from backups.
type RestoreService struct {
	lib    *library.Library
	blobs  blob.Store
	logger *slog.Logger
}

// NewRestoreService creates a RestoreService. blobs must be the store the
// library reads attachments from.
func NewRestoreService(lib *library.Library, blobs blob.Store, log *slog.Logger) *RestoreService {
	return &RestoreService{lib: lib, blobs: blobs, logger: logger.OrDiscard(log)}
}

// archive is an opened and decoded backup.
type archive struct {
	zr       *zip.ReadCloser
	manifest Manifest
	snapshot *domain.Snapshot
}

func openArchive(path string) (*archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Malformed(err, "open backup")
	}
	a := &archive{zr: zr}

	if err := readJSON(&zr.Reader, manifestFile, &a.manifest); err != nil {
		zr.Close()
		return nil, errors.Malformed(fmt.Errorf("%w: %v", ErrInvalidManifest, err), "read manifest")
	}
	if a.manifest.Version != FormatVersion {
		zr.Close()
		return nil, errors.Malformed(fmt.Errorf("%w: %s (want %s)", ErrVersionMismatch, a.manifest.Version, FormatVersion), "read manifest")
	}

	rc, err := stream.OpenFile(&zr.Reader, snapshotFile)
	if err != nil {
		zr.Close()
		return nil, errors.Malformed(fmt.Errorf("%w: %v", ErrCorruptedBackup, err), "read snapshot")
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err == nil {
		a.snapshot, err = domain.DecodeSnapshot(data)
	}
	if err != nil {
		zr.Close()
		return nil, errors.Malformed(fmt.Errorf("%w: %v", ErrCorruptedBackup, err), "read snapshot")
	}
	return a, nil
}

func (a *archive) Close() error {
	return a.zr.Close()
}

func readJSON(zr *zip.Reader, name string, v any) error {
	rc, err := stream.OpenFile(zr, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return json.NewDecoder(rc).Decode(v)
}

// Restore restores from a backup file. The archive is fully decoded before
// anything is written; a malformed archive leaves the library untouched.
//
// Full mode replaces every collection with the backup's. Merge mode merges
// the backup in, newest record wins. Either way the local device identity
// is kept, and blobs the result references are written if missing locally.
func (s *RestoreService) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()
	if !opts.Mode.Valid() {
		return nil, errors.Validationf("unknown restore mode %q", opts.Mode)
	}

	s.logger.Info("starting restore",
		"path", path,
		"mode", opts.Mode,
		"dry_run", opts.DryRun)

	a, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	build := func(local *domain.Snapshot) (*domain.Snapshot, error) {
		if opts.Mode == RestoreModeMerge {
			return exchange.MergeSnapshots(local, a.snapshot), nil
		}
		next := a.snapshot.Clone()
		next.Sync = local.Sync
		return next, nil
	}

	current := s.lib.Snapshot()
	preview, _ := build(current)
	result := &RestoreResult{
		Mode:   opts.Mode,
		DryRun: opts.DryRun,
		Before: current.Counts(),
		After:  preview.Counts(),
	}

	if a.manifest.IncludesBlobs {
		if err := s.restoreBlobs(ctx, a, preview, opts.DryRun, result); err != nil {
			return nil, err
		}
	}

	if !opts.DryRun {
		if err := s.lib.Transform(ctx, build); err != nil {
			return nil, err
		}
		result.After = s.lib.Counts()
	}
	result.Duration = time.Since(start)

	s.logger.Info("restore complete",
		"mode", opts.Mode,
		"books", result.After.Books,
		"blobs_restored", result.BlobsRestored,
		"blobs_skipped", result.BlobsSkipped,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// restoreBlobs writes archived blobs that target references and the local
// store lacks. Unreadable records are reported and skipped.
func (s *RestoreService) restoreBlobs(ctx context.Context, a *archive, target *domain.Snapshot, dryRun bool, result *RestoreResult) error {
	rc, err := stream.OpenFile(&a.zr.Reader, blobsFile)
	if err != nil {
		result.Errors = append(result.Errors, RestoreError{EntityType: "blob", Error: "archive has no blob records"})
		return nil
	}

	wanted := make(map[string]bool)
	for _, id := range target.BlobIDs() {
		wanted[id] = true
	}

	for rec, err := range stream.NewReader[blob.Record](rc).All() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			result.Errors = append(result.Errors, RestoreError{EntityType: "blob", Error: err.Error()})
			continue
		}
		if rec.ID == "" || int64(len(rec.Data)) != rec.Size {
			result.Errors = append(result.Errors, RestoreError{EntityType: "blob", EntityID: rec.ID, Error: "size does not match data"})
			continue
		}
		if !wanted[rec.ID] {
			result.BlobsSkipped++
			continue
		}

		_, exists, err := s.blobs.Get(ctx, rec.ID)
		if err != nil {
			return errors.Storage(err, "read blob")
		}
		if exists {
			result.BlobsSkipped++
			continue
		}
		if !dryRun {
			if err := s.blobs.Put(ctx, &rec); err != nil {
				return errors.Storage(err, "restore blob")
			}
		}
		result.BlobsRestored++
	}
	return nil
}

// Validate checks a backup without importing.
func (s *RestoreService) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	a, err := openArchive(path)
	if err != nil {
		return &ValidationResult{Valid: false, Errors: []string{err.Error()}}, nil
	}
	defer a.Close()

	result := &ValidationResult{Valid: true, Manifest: &a.manifest}

	if got := a.snapshot.Counts(); got != a.manifest.Counts {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("snapshot counts %+v differ from manifest %+v", got, a.manifest.Counts))
	}
	if a.manifest.IncludesBlobs {
		if _, err := stream.OpenFile(&a.zr.Reader, blobsFile); err != nil {
			result.Warnings = append(result.Warnings, "missing file: "+blobsFile)
		}
	}

	return result, nil
}
