// Package library is the entity store of a Marginalia installation. A
// Library owns the in-memory snapshot, enforces the cross-collection rules
// (cascading deletes, category re-homing, blob cleanup) and writes the whole
// snapshot through the persistence adapter after every mutation.
//
// Lifecycle: Open (or New followed by Load) at process start, mutations
// during the session, Flush to retry a failed write.
package library

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/id"
	"github.com/listenupapp/marginalia/internal/logger"
	"github.com/listenupapp/marginalia/internal/persist"
	"github.com/listenupapp/marginalia/internal/validation"
)

// DefaultMaxUploadSize caps attached files when Config leaves it unset.
const DefaultMaxUploadSize = 50_000_000

// Config wires a Library to its collaborators.
type Config struct {
	Adapter   *persist.Adapter
	Blobs     blob.Store
	Clock     clock.Clock
	Validator *validation.Validator
	Logger    *slog.Logger

	MaxUploadSize    int64
	FallbackCategory string
}

// Library is the entity store.
type Library struct {
	mu   sync.Mutex
	snap *domain.Snapshot

	adapter  *persist.Adapter
	blobs    blob.Store
	clock    clock.Clock
	validate *validation.Validator
	logger   *slog.Logger

	maxUpload int64
	fallback  string

	// dirty is set when the last write failed; pendingBlobs holds blob
	// deletions that did not reach storage with it.
	dirty        bool
	pendingBlobs []string
}

// New creates a Library holding an empty default snapshot. Call Load to read
// the persisted one.
func New(cfg Config) *Library {
	l := &Library{
		snap:      domain.NewSnapshot("", ""),
		adapter:   cfg.Adapter,
		blobs:     cfg.Blobs,
		clock:     cfg.Clock,
		validate:  cfg.Validator,
		logger:    logger.OrDiscard(cfg.Logger),
		maxUpload: cfg.MaxUploadSize,
		fallback:  cfg.FallbackCategory,
	}
	if l.blobs == nil {
		l.blobs = blob.NewMemory()
	}
	if l.adapter == nil {
		l.adapter = persist.New(persist.NewMemory(), l.blobs, l.logger)
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	if l.validate == nil {
		l.validate = validation.New()
	}
	if l.maxUpload <= 0 {
		l.maxUpload = DefaultMaxUploadSize
	}
	if l.fallback == "" {
		l.fallback = domain.CategoryOther
	}
	return l
}

// Open creates a Library and loads its persisted snapshot.
func Open(ctx context.Context, cfg Config) (*Library, error) {
	l := New(cfg)
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Load replaces the in-memory snapshot with the persisted one. A missing or
// unreadable document yields a default library, which is written back
// immediately so the generated device identity is stable.
func (l *Library) Load(ctx context.Context) (persist.Origin, error) {
	snap, origin, err := l.adapter.Load(ctx, newIdentity)
	if err != nil {
		return "", err
	}
	if snap.Sync.Status == domain.SyncSyncing {
		snap.Sync.Status = domain.SyncIdle
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap = snap
	l.dirty = false
	l.pendingBlobs = nil

	l.logger.Info("library loaded",
		"origin", origin,
		"books", len(snap.Books),
		"projects", len(snap.Projects),
		"notes", len(snap.Notes),
		"device_id", snap.Sync.DeviceID,
	)

	if origin != persist.OriginStored {
		if err := l.commitLocked(ctx, nil); err != nil {
			return origin, err
		}
	}
	return origin, nil
}

func newIdentity() (string, string, error) {
	code, err := id.NewSyncCode()
	if err != nil {
		return "", "", err
	}
	return id.NewDeviceID(), code, nil
}

// Flush writes the current snapshot, together with any blob deletions left
// over from a failed write.
func (l *Library) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commitLocked(ctx, nil)
}

// Dirty reports whether in-memory state is ahead of persisted state.
func (l *Library) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// Snapshot returns a deep copy of the current state.
func (l *Library) Snapshot() *domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.Clone()
}

// Replace swaps the whole snapshot for snap in one assignment and persists
// it once. The local sync identity is kept when snap carries none.
func (l *Library) Replace(ctx context.Context, snap *domain.Snapshot) error {
	return l.Transform(ctx, func(*domain.Snapshot) (*domain.Snapshot, error) {
		return snap.Clone(), nil
	})
}

// Transform computes a new snapshot from a copy of the current one and
// installs it with a single write. Blobs referenced before but not after
// are deleted in the same commit. If fn fails, nothing changes.
func (l *Library) Transform(ctx context.Context, fn func(current *domain.Snapshot) (*domain.Snapshot, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fn(l.snap.Clone())
	if err != nil {
		return err
	}
	next.Normalize()
	if next.Sync.DeviceID == "" {
		next.Sync.DeviceID = l.snap.Sync.DeviceID
	}
	if next.Sync.SyncCode == "" {
		next.Sync.SyncCode = l.snap.Sync.SyncCode
	}

	orphans := unreferenced(l.snap.BlobIDs(), next.BlobIDs())
	l.snap = next
	return l.commitLocked(ctx, orphans)
}

func unreferenced(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, id := range after {
		keep[id] = struct{}{}
	}
	var out []string
	for _, id := range before {
		if _, ok := keep[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// mutation is applied to the live snapshot under the lock. It returns
// whether anything changed and the blobs to delete with the write. It must
// leave the snapshot untouched when it returns an error.
type mutation func(s *domain.Snapshot) (changed bool, deleteBlobs []string, err error)

func (l *Library) mutate(ctx context.Context, fn mutation) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed, blobs, err := fn(l.snap)
	if err != nil || !changed {
		return false, err
	}
	return true, l.commitLocked(ctx, blobs)
}

// commitLocked persists the snapshot. On failure the in-memory state stays
// ahead: the library is marked dirty and the blob deletions are queued for
// the next successful write.
func (l *Library) commitLocked(ctx context.Context, deleteBlobs []string) error {
	blobs := append(l.pendingBlobs, deleteBlobs...)
	if err := l.adapter.Commit(ctx, l.snap, blobs); err != nil {
		l.dirty = true
		l.pendingBlobs = blobs
		l.logger.Error("failed to persist library", "error", err, "pending_blobs", len(blobs))
		return err
	}
	l.dirty = false
	l.pendingBlobs = nil
	return nil
}

// next returns a timestamp strictly after prev. Records merged from a device
// whose clock runs ahead would otherwise be stamped backwards on edit.
func (l *Library) next(prev time.Time) time.Time {
	now := l.clock.Now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

// SyncState returns the sync metadata.
func (l *Library) SyncState() domain.SyncState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap.Sync.Clone()
}

// SetSyncStatus changes the sync status in memory. The status is persisted
// with the next write.
func (l *Library) SetSyncStatus(status domain.SyncStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap.Sync.Status = status
}

// RecordSync stamps lastSyncAt and persists. The status is not touched.
func (l *Library) RecordSync(ctx context.Context, at time.Time) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		t := at.UTC()
		s.Sync.LastSyncAt = &t
		return true, nil, nil
	})
	return err
}

// RegenerateSyncCode replaces the sync code and returns the new one.
func (l *Library) RegenerateSyncCode(ctx context.Context) (string, error) {
	code, err := id.NewSyncCode()
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generate sync code")
	}
	if _, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		s.Sync.SyncCode = code
		return true, nil, nil
	}); err != nil {
		return "", err
	}
	return code, nil
}

func newID(prefix string) (string, error) {
	v, err := id.Generate(prefix)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generate id")
	}
	return v, nil
}
