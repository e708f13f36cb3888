package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/id"
	"github.com/listenupapp/marginalia/internal/library"
	"github.com/listenupapp/marginalia/internal/logger"
)

// Transport publishes and retrieves payloads addressed by sync code.
type Transport interface {
	Publish(ctx context.Context, code string, p *domain.Payload) error
	Fetch(ctx context.Context, code string) (*domain.Payload, bool, error)
}

// Engine runs exchanges for one library.
type Engine struct {
	lib       *library.Library
	transport Transport
	clock     clock.Clock
	logger    *slog.Logger
}

// NewEngine creates an Engine. A nil clock uses the system clock.
func NewEngine(lib *library.Library, transport Transport, clk clock.Clock, log *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{lib: lib, transport: transport, clock: clk, logger: logger.OrDiscard(log)}
}

// PullResult describes a completed pull.
type PullResult struct {
	Found      bool                `json:"found"`
	DeviceID   string              `json:"deviceId,omitempty"`
	Published  time.Time           `json:"published,omitzero"`
	Before     domain.EntityCounts `json:"before"`
	After      domain.EntityCounts `json:"after"`
	MissingIDs []string            `json:"missingBlobs,omitempty"`
}

// Export publishes the current snapshot under the library's sync code and
// records lastSyncAt. It returns the code. The sync status is left alone,
// whether or not the publish succeeds.
func (e *Engine) Export(ctx context.Context) (string, error) {
	snap := e.lib.Snapshot()
	code := snap.Sync.SyncCode
	now := e.clock.Now()

	p := &domain.Payload{Data: *snap, Timestamp: now, DeviceID: snap.Sync.DeviceID}
	if err := e.transport.Publish(ctx, code, p); err != nil {
		return "", fmt.Errorf("publish snapshot: %w", err)
	}
	if err := e.lib.RecordSync(ctx, now); err != nil {
		return code, err
	}

	e.logger.Info("snapshot published", "code", code, "books", len(snap.Books))
	return code, nil
}

// Fetch retrieves the payload published under code without merging it.
// ok is false if nothing was published under that code.
func (e *Engine) Fetch(ctx context.Context, code string) (*domain.Payload, bool, error) {
	code = id.NormalizeCode(code)
	if !id.ValidCode(code) {
		return nil, false, errors.Validationf("invalid sync code %q", code)
	}
	p, ok, err := e.transport.Fetch(ctx, code)
	if err != nil {
		return nil, false, fmt.Errorf("fetch snapshot: %w", err)
	}
	return p, ok, nil
}

// Pull fetches the payload under code, merges it into the library and
// persists the result once. A missing payload is not an error: the result
// has Found=false and the library is unchanged.
func (e *Engine) Pull(ctx context.Context, code string) (*PullResult, error) {
	e.lib.SetSyncStatus(domain.SyncSyncing)

	p, ok, err := e.Fetch(ctx, code)
	if err != nil {
		e.lib.SetSyncStatus(domain.SyncError)
		return nil, err
	}
	if !ok {
		e.lib.SetSyncStatus(domain.SyncIdle)
		return &PullResult{Found: false}, nil
	}

	res := &PullResult{Found: true, DeviceID: p.DeviceID, Published: p.Timestamp}
	now := e.clock.Now()
	err = e.lib.Transform(ctx, func(local *domain.Snapshot) (*domain.Snapshot, error) {
		res.Before = local.Counts()
		merged := MergeSnapshots(local, &p.Data)
		t := now
		merged.Sync.LastSyncAt = &t
		merged.Sync.Status = domain.SyncIdle
		res.After = merged.Counts()
		return merged, nil
	})
	if err != nil {
		e.lib.SetSyncStatus(domain.SyncError)
		return nil, err
	}

	res.MissingIDs = MissingBlobs(e.lib.Snapshot(), func(blobID string) bool {
		_, ok, err := e.lib.DownloadFile(ctx, blobID)
		return ok || err != nil
	})
	e.logger.Info("snapshot merged",
		"from_device", p.DeviceID,
		"books_before", res.Before.Books,
		"books_after", res.After.Books,
		"missing_blobs", len(res.MissingIDs),
	)
	return res, nil
}

// ExportData returns the library snapshot as a JSON document.
func ExportData(lib *library.Library) (string, error) {
	data, err := json.MarshalIndent(lib.Snapshot(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "encode export")
	}
	return string(data), nil
}

// ImportData replaces the library's collections with those in data. The
// import is all or nothing: if data fails to parse or has the wrong shape,
// ok is false, err carries the reason and the library is untouched. The
// local sync identity is kept.
func ImportData(ctx context.Context, lib *library.Library, data string) (bool, error) {
	snap, err := domain.DecodeSnapshot([]byte(data))
	if err != nil {
		return false, errors.Malformed(err, "import data")
	}
	if err := checkIDs(snap); err != nil {
		return false, errors.Malformed(err, "import data")
	}

	err = lib.Transform(ctx, func(local *domain.Snapshot) (*domain.Snapshot, error) {
		snap.Sync = local.Sync
		return snap, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func checkIDs(s *domain.Snapshot) error {
	return errors.Join(
		requireIDs("book", s.Books),
		requireIDs("category", s.Categories),
		requireIDs("pdf annotation", s.PDFAnnotations),
		requireIDs("project", s.Projects),
		requireIDs("note", s.Notes),
	)
}

func requireIDs[T interface{ Key() (string, time.Time) }](kind string, recs []T) error {
	for i := range recs {
		if v, _ := recs[i].Key(); v == "" {
			return fmt.Errorf("%s at index %d has no id", kind, i)
		}
	}
	return nil
}
