package library

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/id"
)

// Upload is a file handed to the library for storage.
type Upload struct {
	Name        string
	Type        string // declared MIME type; sniffed when empty
	Description string // project files only
	Data        []byte
}

func (l *Library) storeBlob(ctx context.Context, up Upload) (*blob.Record, error) {
	if int64(len(up.Data)) > l.maxUpload {
		return nil, errors.TooLargef("%s is %s, the limit is %s", up.Name,
			humanize.Bytes(uint64(len(up.Data))), humanize.Bytes(uint64(l.maxUpload)))
	}
	blobID, err := newID(id.PrefixBlob)
	if err != nil {
		return nil, err
	}
	mime, fileType := blob.Classify(up.Name, up.Type, up.Data)
	r := &blob.Record{
		ID:        blobID,
		Name:      up.Name,
		Type:      mime,
		FileType:  fileType,
		Size:      int64(len(up.Data)),
		Data:      up.Data,
		CreatedAt: l.clock.Now(),
	}
	if err := l.blobs.Put(ctx, r); err != nil {
		return nil, errors.Storage(err, "store file")
	}
	return r, nil
}

// UploadFile attaches a file to a book, replacing (and deleting) any earlier
// attachment. ok is false if the book does not exist, in which case nothing
// is stored. Files over the size limit fail with ErrTooLarge.
func (l *Library) UploadFile(ctx context.Context, bookID string, up Upload) (*domain.Book, bool, error) {
	if _, ok := l.GetBook(bookID); !ok {
		return nil, false, nil
	}
	r, err := l.storeBlob(ctx, up)
	if err != nil {
		return nil, false, err
	}

	var updated domain.Book
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindBook(bookID)
		if i < 0 {
			return false, nil, nil
		}
		b := &s.Books[i]
		var old []string
		if b.File != nil && b.File.BlobID != "" {
			old = append(old, b.File.BlobID)
		}
		b.File = &domain.FileRef{BlobID: r.ID, FileType: r.FileType, FileName: r.Name}
		b.Touch(l.next(b.UpdatedAt))
		updated = b.Clone()
		return true, old, nil
	})
	if !found {
		// The book vanished between the check and the write.
		if delErr := l.blobs.Delete(ctx, r.ID); delErr != nil {
			l.logger.Warn("failed to discard unattached blob", "blob_id", r.ID, "error", delErr)
		}
		return nil, false, err
	}
	l.logger.Debug("file attached", "book_id", bookID, "blob_id", r.ID, "size", humanize.Bytes(uint64(r.Size)))
	return &updated, true, err
}

// DownloadFile returns the stored file. A missing blob is reported as
// ok=false: the file was never uploaded, or it lives on another device.
func (l *Library) DownloadFile(ctx context.Context, blobID string) (*blob.Record, bool, error) {
	r, ok, err := l.blobs.Get(ctx, blobID)
	if err != nil {
		return nil, false, errors.Storage(err, "read file")
	}
	return r, ok, nil
}

// DeleteBookFile detaches and deletes a book's file. It is a no-op when the
// book does not exist or has no file.
func (l *Library) DeleteBookFile(ctx context.Context, bookID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindBook(bookID)
		if i < 0 || s.Books[i].File == nil {
			return false, nil, nil
		}
		b := &s.Books[i]
		blobs := []string{b.File.BlobID}
		b.File = nil
		b.Touch(l.next(b.UpdatedAt))
		return true, blobs, nil
	})
	return err
}

// AddProjectFile stores a file and appends it to the project's files.
// ok is false if the project does not exist.
func (l *Library) AddProjectFile(ctx context.Context, projectID string, up Upload) (*domain.ProjectFile, bool, error) {
	if _, ok := l.GetProject(projectID); !ok {
		return nil, false, nil
	}
	fileID, err := newID(id.PrefixProjectFile)
	if err != nil {
		return nil, false, err
	}
	r, err := l.storeBlob(ctx, up)
	if err != nil {
		return nil, false, err
	}

	var added domain.ProjectFile
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindProject(projectID)
		if i < 0 {
			return false, nil, nil
		}
		p := &s.Projects[i]
		now := l.next(p.UpdatedAt)
		added = domain.ProjectFile{
			ID:          fileID,
			Name:        r.Name,
			Type:        r.Type,
			Size:        r.Size,
			Description: up.Description,
			BlobID:      r.ID,
			UploadedAt:  now,
		}
		p.Files = append(p.Files, added)
		p.Touch(now)
		return true, nil, nil
	})
	if !found {
		if delErr := l.blobs.Delete(ctx, r.ID); delErr != nil {
			l.logger.Warn("failed to discard unattached blob", "blob_id", r.ID, "error", delErr)
		}
		return nil, false, err
	}
	return &added, true, err
}

// DeleteProjectFile removes a file record from its project and deletes its
// blob in the same commit. Missing ids are a no-op.
func (l *Library) DeleteProjectFile(ctx context.Context, projectID, fileID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		removed, blobs := domain.RemoveProjectFile(s, projectID, fileID, l.next(projectUpdatedAt(s, projectID)))
		return removed, blobs, nil
	})
	return err
}

func projectUpdatedAt(s *domain.Snapshot, projectID string) time.Time {
	if i := s.FindProject(projectID); i >= 0 {
		return s.Projects[i].UpdatedAt
	}
	return time.Time{}
}
