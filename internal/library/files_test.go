package library

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
)

func TestUploadFile_ReplacesPreviousAttachment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.book(t, "Dune")

	first, ok, err := h.lib.UploadFile(ctx, b.ID, Upload{Name: "v1.txt", Data: []byte("one")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.FileTypeText, first.File.FileType)

	second, ok, err := h.lib.UploadFile(ctx, b.ID, Upload{Name: "v2.pdf", Type: "application/pdf", Data: []byte("two")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.FileTypePDF, second.File.FileType)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	_, ok, err = h.lib.DownloadFile(ctx, first.File.BlobID)
	require.NoError(t, err)
	assert.False(t, ok, "replaced blob is deleted")

	r, ok, err := h.lib.DownloadFile(ctx, second.File.BlobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), r.Data)
	assert.Equal(t, "v2.pdf", r.Name)
	assert.Equal(t, 1, h.blobs.Len())
}

func TestUploadFile_RoundTripsBinary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.book(t, "Bytes")
	data := bytes.Repeat([]byte{0x00, 0xff, 0x7f, 0x80}, 100)

	withFile, _, err := h.lib.UploadFile(ctx, b.ID, Upload{Name: "raw.bin", Data: data})
	require.NoError(t, err)

	r, ok, err := h.lib.DownloadFile(ctx, withFile.File.BlobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, r.Data)
	assert.Equal(t, int64(len(data)), r.Size)
}

func TestUploadFile_TooLarge(t *testing.T) {
	h := newHarness(t)
	b := h.book(t, "Dune")
	saves := h.docs.Saves()

	_, ok, err := h.lib.UploadFile(context.Background(), b.ID, Upload{Name: "big.pdf", Data: make([]byte, 2048)})

	assert.ErrorIs(t, err, errors.ErrTooLarge)
	assert.False(t, ok)
	assert.Zero(t, h.blobs.Len())
	assert.Equal(t, saves, h.docs.Saves())
	got, _ := h.lib.GetBook(b.ID)
	assert.Nil(t, got.File)
}

func TestUploadFile_MissingBook(t *testing.T) {
	h := newHarness(t)

	_, ok, err := h.lib.UploadFile(context.Background(), "book-missing", Upload{Name: "a.txt", Data: []byte("x")})

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, h.blobs.Len())
}

func TestDeleteBookFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.book(t, "Dune")
	withFile, _, err := h.lib.UploadFile(ctx, b.ID, Upload{Name: "a.txt", Data: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, h.lib.DeleteBookFile(ctx, b.ID))
	require.NoError(t, h.lib.DeleteBookFile(ctx, b.ID))

	got, _ := h.lib.GetBook(b.ID)
	assert.Nil(t, got.File)
	_, ok, err := h.lib.DownloadFile(ctx, withFile.File.BlobID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjectFiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, err := h.lib.CreateProject(ctx, domain.ProjectInput{Name: "Thesis", StartDate: "2024-02-01"})
	require.NoError(t, err)

	f1, ok, err := h.lib.AddProjectFile(ctx, p.ID, Upload{Name: "data.csv", Type: "text/csv", Description: "raw", Data: []byte("a,b")})
	require.NoError(t, err)
	require.True(t, ok)
	f2, _, err := h.lib.AddProjectFile(ctx, p.ID, Upload{Name: "fig.png", Type: "image/png", Data: []byte{0x89}})
	require.NoError(t, err)

	assert.Equal(t, "text/csv", f1.Type)
	assert.Equal(t, int64(3), f1.Size)
	assert.Equal(t, "raw", f1.Description)

	require.NoError(t, h.lib.DeleteProjectFile(ctx, p.ID, f1.ID))

	got, ok := h.lib.GetProject(p.ID)
	require.True(t, ok)
	require.Len(t, got.Files, 1)
	assert.Equal(t, f2.ID, got.Files[0].ID)
	_, ok, _ = h.lib.DownloadFile(ctx, f1.BlobID)
	assert.False(t, ok)

	require.NoError(t, h.lib.DeleteProject(ctx, p.ID))
	_, ok, _ = h.lib.DownloadFile(ctx, f2.BlobID)
	assert.False(t, ok, "project deletion removes its file blobs")
	assert.Zero(t, h.blobs.Len())
}

func TestProjectItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p, err := h.lib.CreateProject(ctx, domain.ProjectInput{Name: "Garden"})
	require.NoError(t, err)

	withKnowledge, ok, err := h.lib.AddKnowledgeItem(ctx, p.ID, domain.KnowledgeInput{Title: "Soil pH", Content: "6.5", Category: "soil"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, withKnowledge.Knowledge, 1)
	assert.NotEmpty(t, withKnowledge.Knowledge[0].ID)

	_, _, err = h.lib.AddLessonItem(ctx, p.ID, domain.LessonInput{Title: "Frost", Type: "disaster"})
	assert.ErrorIs(t, err, errors.ErrValidation)

	withLesson, ok, err := h.lib.AddLessonItem(ctx, p.ID, domain.LessonInput{Title: "Frost", Type: domain.LessonWarning})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, withLesson.Lessons, 1)
	assert.True(t, withLesson.UpdatedAt.After(withKnowledge.UpdatedAt))

	_, ok, err = h.lib.AddKnowledgeItem(ctx, "proj-missing", domain.KnowledgeInput{Title: "x"})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestBookAnnotations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := h.book(t, "Dune")

	ann, ok, err := h.lib.AddBookAnnotation(ctx, b.ID, domain.AnnotationInput{Page: 12, Content: "spice"})
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := h.lib.GetBook(b.ID)
	require.Len(t, got.Annotations, 1)
	assert.Equal(t, 1, h.lib.Stats().TotalAnnotations)

	require.NoError(t, h.lib.DeleteBookAnnotation(ctx, b.ID, ann.ID))
	got, _ = h.lib.GetBook(b.ID)
	assert.Empty(t, got.Annotations)
}

func TestRegenerateSyncCode(t *testing.T) {
	h := newHarness(t)
	before := h.lib.SyncState()

	code, err := h.lib.RegenerateSyncCode(context.Background())
	require.NoError(t, err)

	assert.Len(t, code, 6)
	assert.Equal(t, code, h.lib.SyncState().SyncCode)
	assert.Equal(t, before.DeviceID, h.lib.SyncState().DeviceID)
}

func TestTransform_DeletesOrphanedBlobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	kept := h.book(t, "Kept")
	dropped := h.book(t, "Dropped")

	keptFile, _, err := h.lib.UploadFile(ctx, kept.ID, Upload{Name: "k.txt", Data: []byte("k")})
	require.NoError(t, err)
	_, _, err = h.lib.UploadFile(ctx, dropped.ID, Upload{Name: "d.txt", Data: []byte("d")})
	require.NoError(t, err)
	require.Equal(t, 2, h.blobs.Len())

	saves := h.docs.Saves()
	err = h.lib.Transform(ctx, func(s *domain.Snapshot) (*domain.Snapshot, error) {
		s.Books = s.Books[:1]
		s.Sync.DeviceID = ""
		return s, nil
	})
	require.NoError(t, err)

	assert.Equal(t, saves+1, h.docs.Saves())
	assert.Equal(t, 1, h.blobs.Len())
	_, ok, err := h.lib.DownloadFile(ctx, keptFile.File.BlobID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, h.lib.SyncState().DeviceID, "identity survives a snapshot without one")
}

func TestTransform_ErrorLeavesLibraryUntouched(t *testing.T) {
	h := newHarness(t)
	h.book(t, "Dune")
	before := h.lib.Snapshot()
	saves := h.docs.Saves()

	err := h.lib.Transform(context.Background(), func(s *domain.Snapshot) (*domain.Snapshot, error) {
		s.Books = nil
		return nil, errors.Internalf("nope")
	})

	require.Error(t, err)
	assert.Equal(t, before, h.lib.Snapshot())
	assert.Equal(t, saves, h.docs.Saves())
}
