package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func cascadeFixture() *Snapshot {
	s := NewSnapshot("device-1", "ABC234")
	b1 := NewBook("book-1", BookInput{Title: "Dune", CategoryID: CategoryBook}, t0)
	b1.File = &FileRef{BlobID: "file-1", FileType: FileTypePDF, FileName: "dune.pdf"}
	b2 := NewBook("book-2", BookInput{Title: "Emma", CategoryID: "cat-x"}, t0)
	s.Books = append(s.Books, *b1, *b2)
	s.Categories = append(s.Categories, *NewCategory("cat-x", CategoryInput{Name: "X"}, t0))
	s.PDFAnnotations = append(s.PDFAnnotations,
		*NewPDFAnnotation("pdfa-1", PDFAnnotationInput{BookID: "book-1", Page: 1}, t0),
		*NewPDFAnnotation("pdfa-2", PDFAnnotationInput{BookID: "book-2", Page: 3}, t0),
		*NewPDFAnnotation("pdfa-3", PDFAnnotationInput{BookID: "book-1", Page: 9}, t0),
	)
	p := NewProject("proj-1", ProjectInput{Name: "Thesis"}, t0)
	p.Files = append(p.Files,
		ProjectFile{ID: "pfile-1", Name: "a.txt", BlobID: "file-2"},
		ProjectFile{ID: "pfile-2", Name: "b.txt", BlobID: "file-3"},
	)
	s.Projects = append(s.Projects, *p)
	return s
}

func TestRemoveBook(t *testing.T) {
	t.Run("removes annotations and reports blob", func(t *testing.T) {
		s := cascadeFixture()

		removed, blobs := RemoveBook(s, "book-1")

		require.True(t, removed)
		assert.Equal(t, []string{"file-1"}, blobs)
		assert.Equal(t, -1, s.FindBook("book-1"))
		require.Len(t, s.PDFAnnotations, 1)
		assert.Equal(t, "book-2", s.PDFAnnotations[0].BookID)
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		s := cascadeFixture()
		before := s.Counts()

		removed, blobs := RemoveBook(s, "book-missing")

		assert.False(t, removed)
		assert.Empty(t, blobs)
		assert.Equal(t, before, s.Counts())
	})
}

func TestRemoveCategory(t *testing.T) {
	t.Run("re-homes books to fallback", func(t *testing.T) {
		s := cascadeFixture()
		now := t0.Add(time.Hour)

		removed, moved := RemoveCategory(s, "cat-x", CategoryOther, stampAt(now))

		assert.True(t, removed)
		assert.Equal(t, 1, moved)
		b := s.Books[s.FindBook("book-2")]
		assert.Equal(t, CategoryOther, b.CategoryID)
		assert.Equal(t, now, b.UpdatedAt)
		assert.Len(t, s.Books, 2)
	})

	t.Run("re-homes even when the category record is gone", func(t *testing.T) {
		s := cascadeFixture()
		s.Books[1].CategoryID = "cat-ghost"

		removed, moved := RemoveCategory(s, "cat-ghost", CategoryOther, stampAt(t0))

		assert.False(t, removed)
		assert.Equal(t, 1, moved)
	})

	t.Run("deleting the fallback leaves books alone", func(t *testing.T) {
		s := cascadeFixture()
		s.Books[0].CategoryID = CategoryOther

		removed, moved := RemoveCategory(s, CategoryOther, CategoryOther, stampAt(t0))

		assert.True(t, removed)
		assert.Zero(t, moved)
		assert.Equal(t, CategoryOther, s.Books[0].CategoryID)
	})

	t.Run("stamps each book from its own timestamp", func(t *testing.T) {
		s := cascadeFixture()
		ahead := t0.AddDate(6, 0, 0)
		s.Books[1].UpdatedAt = ahead

		var seen []time.Time
		_, moved := RemoveCategory(s, "cat-x", CategoryOther, func(prev time.Time) time.Time {
			seen = append(seen, prev)
			return prev.Add(time.Nanosecond)
		})

		require.Equal(t, 1, moved)
		assert.Equal(t, []time.Time{ahead}, seen)
		assert.True(t, s.Books[1].UpdatedAt.After(ahead))
	})
}

func stampAt(now time.Time) func(time.Time) time.Time {
	return func(time.Time) time.Time { return now }
}

func TestRemoveProject(t *testing.T) {
	s := cascadeFixture()

	removed, blobs := RemoveProject(s, "proj-1")

	assert.True(t, removed)
	assert.ElementsMatch(t, []string{"file-2", "file-3"}, blobs)
	assert.Empty(t, s.Projects)

	removed, blobs = RemoveProject(s, "proj-1")
	assert.False(t, removed)
	assert.Empty(t, blobs)
}

func TestRemoveProjectFile(t *testing.T) {
	s := cascadeFixture()
	now := t0.Add(time.Minute)

	removed, blobs := RemoveProjectFile(s, "proj-1", "pfile-1", now)

	require.True(t, removed)
	assert.Equal(t, []string{"file-2"}, blobs)
	require.Len(t, s.Projects[0].Files, 1)
	assert.Equal(t, "pfile-2", s.Projects[0].Files[0].ID)
	assert.Equal(t, now, s.Projects[0].UpdatedAt)

	removed, _ = RemoveProjectFile(s, "proj-1", "pfile-1", now)
	assert.False(t, removed)
}
