package backup_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/backup"
	"github.com/listenupapp/marginalia/internal/blob"
	"github.com/listenupapp/marginalia/internal/clock"
	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/library"
	"github.com/listenupapp/marginalia/internal/persist"
)

var t0 = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type env struct {
	lib       *library.Library
	blobs     *blob.Memory
	backups   *backup.BackupService
	restores  *backup.RestoreService
	backupDir string
}

// testSetup creates a library with in-memory storage and backup/restore services.
func testSetup(t *testing.T) *env {
	t.Helper()

	blobs := blob.NewMemory()
	lib, err := library.Open(context.Background(), library.Config{
		Adapter: persist.New(persist.NewMemory(), blobs, nil),
		Blobs:   blobs,
		Clock:   clock.NewFixed(t0),
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "backups")
	return &env{
		lib:       lib,
		blobs:     blobs,
		// Library writes advance their own clock; archive names start at t0.
		backups:   backup.NewBackupService(lib, dir, "test", clock.NewFixed(t0), nil),
		restores:  backup.NewRestoreService(lib, blobs, nil),
		backupDir: dir,
	}
}

// populate creates a book with an attachment, a project with a file and a note.
func populate(t *testing.T, e *env) (bookBlob, projectBlob string) {
	t.Helper()
	ctx := context.Background()

	b, err := e.lib.CreateBook(ctx, domain.BookInput{Title: "Dune", Tags: []string{"sf"}})
	require.NoError(t, err)
	withFile, _, err := e.lib.UploadFile(ctx, b.ID, library.Upload{Name: "dune.pdf", Type: "application/pdf", Data: []byte("%PDF-1.4 dune")})
	require.NoError(t, err)

	p, err := e.lib.CreateProject(ctx, domain.ProjectInput{Name: "Thesis"})
	require.NoError(t, err)
	pf, _, err := e.lib.AddProjectFile(ctx, p.ID, library.Upload{Name: "notes.md", Data: []byte("# notes")})
	require.NoError(t, err)

	_, err = e.lib.CreateNote(ctx, domain.NoteInput{Title: "Read chapter 1", Type: domain.NoteTypeTodo})
	require.NoError(t, err)

	return withFile.File.BlobID, pf.BlobID
}

func TestCreate_WritesArchive(t *testing.T) {
	e := testSetup(t)
	populate(t, e)

	res, err := e.backups.Create(context.Background(), backup.DefaultBackupOptions())
	require.NoError(t, err)

	assert.FileExists(t, res.Path)
	assert.Equal(t, filepath.Join(e.backupDir, "backup-2024-05-01-093000.marginalia.zip"), res.Path)
	assert.Equal(t, 1, res.Counts.Books)
	assert.Equal(t, 1, res.Counts.Projects)
	assert.Equal(t, 2, res.Blobs)
	assert.Empty(t, res.Missing)
	assert.Len(t, res.Checksum, 64)

	zr, err := zip.OpenReader(res.Path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"manifest.json", "snapshot.json", "blobs.jsonl"}, names)

	v, err := e.restores.Validate(context.Background(), res.Path)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, e.lib.SyncState().DeviceID, v.Manifest.DeviceID)
}

func TestListGetDelete(t *testing.T) {
	e := testSetup(t)
	ctx := context.Background()

	list, err := e.backups.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	res, err := e.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	list, err = e.backups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "backup-2024-05-01-093000", list[0].ID)

	info, err := e.backups.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, res.Path, info.Path)

	require.NoError(t, e.backups.Delete(ctx, list[0].ID))
	_, err = e.backups.Get(ctx, list[0].ID)
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
	assert.ErrorIs(t, e.backups.Delete(ctx, list[0].ID), backup.ErrBackupNotFound)
}

func TestRestoreFull_IntoFreshLibrary(t *testing.T) {
	src := testSetup(t)
	bookBlob, projectBlob := populate(t, src)
	res, err := src.backups.Create(context.Background(), backup.DefaultBackupOptions())
	require.NoError(t, err)

	dst := testSetup(t)
	_, err = dst.lib.CreateBook(context.Background(), domain.BookInput{Title: "Replaced"})
	require.NoError(t, err)
	identity := dst.lib.SyncState()

	out, err := dst.restores.Restore(context.Background(), res.Path, backup.RestoreOptions{Mode: backup.RestoreModeFull})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Before.Books)
	assert.Equal(t, src.lib.Counts(), out.After)
	assert.Equal(t, 2, out.BlobsRestored)
	assert.Empty(t, out.Errors)

	books := dst.lib.ListBooks()
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, identity.DeviceID, dst.lib.SyncState().DeviceID)
	assert.Equal(t, identity.SyncCode, dst.lib.SyncState().SyncCode)

	for _, id := range []string{bookBlob, projectBlob} {
		rec, ok, err := dst.lib.DownloadFile(context.Background(), id)
		require.NoError(t, err)
		require.True(t, ok, id)
		want, _, _ := src.lib.DownloadFile(context.Background(), id)
		assert.Equal(t, want.Data, rec.Data)
		assert.Equal(t, want.Name, rec.Name)
	}
}

func TestRestoreMerge_KeepsLocalRecords(t *testing.T) {
	src := testSetup(t)
	populate(t, src)
	res, err := src.backups.Create(context.Background(), backup.DefaultBackupOptions())
	require.NoError(t, err)

	dst := testSetup(t)
	local, err := dst.lib.CreateBook(context.Background(), domain.BookInput{Title: "Local only"})
	require.NoError(t, err)

	out, err := dst.restores.Restore(context.Background(), res.Path, backup.RestoreOptions{Mode: backup.RestoreModeMerge})
	require.NoError(t, err)

	assert.Equal(t, 2, out.After.Books)
	_, ok := dst.lib.GetBook(local.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, dst.blobs.Len())
}

func TestRestore_DryRunWritesNothing(t *testing.T) {
	src := testSetup(t)
	populate(t, src)
	res, err := src.backups.Create(context.Background(), backup.DefaultBackupOptions())
	require.NoError(t, err)

	dst := testSetup(t)
	before := dst.lib.Snapshot()

	out, err := dst.restores.Restore(context.Background(), res.Path, backup.RestoreOptions{Mode: backup.RestoreModeFull, DryRun: true})
	require.NoError(t, err)

	assert.True(t, out.DryRun)
	assert.Equal(t, 1, out.After.Books)
	assert.Equal(t, 2, out.BlobsRestored)
	assert.Equal(t, before, dst.lib.Snapshot())
	assert.Equal(t, 0, dst.blobs.Len())
}

func TestRestore_WithoutBlobs(t *testing.T) {
	src := testSetup(t)
	bookBlob, _ := populate(t, src)
	res, err := src.backups.Create(context.Background(), backup.BackupOptions{IncludeBlobs: false})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Blobs)

	dst := testSetup(t)
	out, err := dst.restores.Restore(context.Background(), res.Path, backup.RestoreOptions{Mode: backup.RestoreModeFull})
	require.NoError(t, err)
	assert.Equal(t, 0, out.BlobsRestored)

	_, ok, err := dst.lib.DownloadFile(context.Background(), bookBlob)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestore_RejectsBadArchives(t *testing.T) {
	dir := t.TempDir()
	e := testSetup(t)
	before := e.lib.Snapshot()

	notZip := filepath.Join(dir, "plain.zip")
	require.NoError(t, os.WriteFile(notZip, []byte("not a zip"), 0o600))

	writeZip := func(name string, files map[string]string) string {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		zw := zip.NewWriter(f)
		for n, body := range files {
			w, err := zw.Create(n)
			require.NoError(t, err)
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())
		return path
	}

	noManifest := writeZip("no-manifest.zip", map[string]string{"snapshot.json": "{}"})
	future := writeZip("future.zip", map[string]string{"manifest.json": `{"version":"9.0"}`})
	badSnapshot := writeZip("bad-snapshot.zip", map[string]string{
		"manifest.json": `{"version":"1.0"}`,
		"snapshot.json": `{"books":[]}`,
	})

	for path, sentinel := range map[string]error{
		notZip:      nil,
		noManifest:  backup.ErrInvalidManifest,
		future:      backup.ErrVersionMismatch,
		badSnapshot: backup.ErrCorruptedBackup,
	} {
		_, err := e.restores.Restore(context.Background(), path, backup.RestoreOptions{Mode: backup.RestoreModeFull})
		require.Error(t, err, path)
		assert.ErrorIs(t, err, errors.ErrMalformed, path)
		if sentinel != nil {
			assert.ErrorIs(t, err, sentinel, path)
		}

		v, err := e.restores.Validate(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, v.Valid, path)
	}

	assert.Equal(t, before, e.lib.Snapshot())
}

func TestRestore_UnknownMode(t *testing.T) {
	e := testSetup(t)

	_, err := e.restores.Restore(context.Background(), "unused", backup.RestoreOptions{Mode: "events_only"})

	assert.ErrorIs(t, err, errors.ErrValidation)
}
