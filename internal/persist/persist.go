// Package persist mirrors a library snapshot into durable storage as a single
// whole-document write.
//
// There is no journal: a crash mid-write can lose the document. Backends that
// write atomically (Badger, SQLite) narrow that window to the transaction.
package persist

import (
	"context"
	"log/slog"

	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/logger"
)

// DocumentStore holds the encoded snapshot under a fixed key.
type DocumentStore interface {
	LoadDocument(ctx context.Context) ([]byte, bool, error)
	SaveDocument(ctx context.Context, doc []byte) error
}

// Transactional is implemented by stores that can replace the document and
// delete blobs atomically.
type Transactional interface {
	Commit(ctx context.Context, doc []byte, deleteBlobs []string) error
}

// Preserver is implemented by stores that can set an unreadable document
// aside before it is overwritten. Only the latest such copy is kept.
type Preserver interface {
	PreserveDocument(ctx context.Context, doc []byte) error
}

// Origin describes where a loaded snapshot came from.
type Origin string

// Origin values.
const (
	OriginStored    Origin = "stored"
	OriginEmpty     Origin = "empty"
	OriginRecovered Origin = "recovered"
)

// Identity supplies the device id and sync code for a fresh snapshot.
type Identity func() (deviceID, syncCode string, err error)

// Adapter reads and writes snapshots.
type Adapter struct {
	docs   DocumentStore
	blobs  blob.Store
	logger *slog.Logger
}

// New creates an Adapter. blobs may be nil if the caller never deletes blobs
// through Commit.
func New(docs DocumentStore, blobs blob.Store, log *slog.Logger) *Adapter {
	return &Adapter{docs: docs, blobs: blobs, logger: logger.OrDiscard(log)}
}

// Load reads the persisted snapshot. A missing document yields a fresh
// default library. A document that fails to decode is logged, copied aside
// when the store is a Preserver, and replaced by a fresh default library.
// Only a failing backend read or copy returns an error.
func (a *Adapter) Load(ctx context.Context, identity Identity) (*domain.Snapshot, Origin, error) {
	doc, ok, err := a.docs.LoadDocument(ctx)
	if err != nil {
		return nil, "", errors.Storage(err, "load snapshot")
	}

	origin := OriginEmpty
	if ok {
		snap, err := domain.DecodeSnapshot(doc)
		if err == nil {
			if err := fillIdentity(snap, identity); err != nil {
				return nil, "", err
			}
			return snap, OriginStored, nil
		}
		a.logger.Warn("persisted snapshot is unreadable, starting from defaults",
			"error", err, "bytes", len(doc))
		if p, ok := a.docs.(Preserver); ok {
			if err := p.PreserveDocument(ctx, doc); err != nil {
				return nil, "", errors.Storage(err, "preserve unreadable snapshot")
			}
		}
		origin = OriginRecovered
	}

	deviceID, code, err := identity()
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeInternal, "generate identity")
	}
	return domain.NewSnapshot(deviceID, code), origin, nil
}

// Save encodes snap and replaces the persisted document.
func (a *Adapter) Save(ctx context.Context, snap *domain.Snapshot) error {
	doc, err := snap.Encode()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode snapshot")
	}
	if err := a.docs.SaveDocument(ctx, doc); err != nil {
		return errors.Storage(err, "save snapshot")
	}
	return nil
}

// Commit saves snap and deletes the given blobs as one compound operation.
//
// When the document store and blob store are the same transactional backend
// the two steps happen in one transaction. Otherwise the document is saved
// first and the blobs deleted afterwards; a blob deletion failure then leaves
// an orphaned blob, which is logged but not reported, since the document
// already reflects the deletion.
func (a *Adapter) Commit(ctx context.Context, snap *domain.Snapshot, deleteBlobs []string) error {
	if len(deleteBlobs) == 0 {
		return a.Save(ctx, snap)
	}

	doc, err := snap.Encode()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode snapshot")
	}

	if tx, ok := a.docs.(Transactional); ok && a.sharedBackend() {
		if err := tx.Commit(ctx, doc, deleteBlobs); err != nil {
			return errors.Storage(err, "commit snapshot")
		}
		return nil
	}

	if err := a.docs.SaveDocument(ctx, doc); err != nil {
		return errors.Storage(err, "save snapshot")
	}
	if a.blobs == nil {
		return nil
	}
	for _, id := range deleteBlobs {
		if err := a.blobs.Delete(ctx, id); err != nil {
			a.logger.Warn("orphaned blob after compound delete", "blob_id", id, "error", err)
		}
	}
	return nil
}

func (a *Adapter) sharedBackend() bool {
	if a.blobs == nil {
		return true
	}
	d, ok := a.docs.(blob.Store)
	return ok && d == a.blobs
}

func fillIdentity(snap *domain.Snapshot, identity Identity) error {
	if snap.Sync.DeviceID != "" && snap.Sync.SyncCode != "" {
		return nil
	}
	deviceID, code, err := identity()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "generate identity")
	}
	if snap.Sync.DeviceID == "" {
		snap.Sync.DeviceID = deviceID
	}
	if snap.Sync.SyncCode == "" {
		snap.Sync.SyncCode = code
	}
	return nil
}
