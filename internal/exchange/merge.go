// Package exchange moves snapshots between devices and reconciles them.
//
// Reconciliation is last-writer-wins per record: for each id the version
// with the strictly later updatedAt survives whole, ties keep the local
// version, and ids present on only one side are kept. Blob bytes are never
// transferred; a merged record may reference a file that exists only on the
// device it came from.
package exchange

import (
	"time"

	"github.com/listenupapp/marginalia/internal/domain"
)

// KeyFunc extracts the identity and version of a record.
type KeyFunc[T any] func(*T) (id string, updatedAt time.Time)

// MergeByID merges remote into local. The result lists local records first,
// in local order (each replaced by the remote version if that one is
// strictly newer), followed by remote-only records in remote order.
// Neither input is modified.
func MergeByID[T any](local, remote []T, key KeyFunc[T]) []T {
	out := make([]T, 0, len(local)+len(remote))
	pos := make(map[string]int, len(local)+len(remote))

	put := func(rec *T) {
		id, at := key(rec)
		if i, ok := pos[id]; ok {
			if _, cur := key(&out[i]); at.After(cur) {
				out[i] = *rec
			}
			return
		}
		pos[id] = len(out)
		out = append(out, *rec)
	}

	for i := range local {
		put(&local[i])
	}
	for i := range remote {
		put(&remote[i])
	}
	return out
}

func syncableKey[T interface{ Key() (string, time.Time) }](rec *T) (string, time.Time) {
	return (*rec).Key()
}

// MergeSnapshots merges every collection of remote into a copy of local.
// The sync block is local's: device identity never travels.
func MergeSnapshots(local, remote *domain.Snapshot) *domain.Snapshot {
	l := local.Clone()
	r := remote.Clone()
	merged := &domain.Snapshot{
		Books:          MergeByID(l.Books, r.Books, syncableKey[domain.Book]),
		Categories:     MergeByID(l.Categories, r.Categories, syncableKey[domain.Category]),
		PDFAnnotations: MergeByID(l.PDFAnnotations, r.PDFAnnotations, syncableKey[domain.PDFAnnotation]),
		Projects:       MergeByID(l.Projects, r.Projects, syncableKey[domain.Project]),
		Notes:          MergeByID(l.Notes, r.Notes, syncableKey[domain.Note]),
		Sync:           l.Sync,
	}
	merged.Normalize()
	return merged
}

// MissingBlobs returns the blob ids referenced by snap for which have
// reports false.
func MissingBlobs(snap *domain.Snapshot, have func(id string) bool) []string {
	var missing []string
	for _, id := range snap.BlobIDs() {
		if !have(id) {
			missing = append(missing, id)
		}
	}
	return missing
}
