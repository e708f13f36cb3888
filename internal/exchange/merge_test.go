package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func book(id, title string, updated time.Time) domain.Book {
	b := domain.NewBook(id, domain.BookInput{Title: title}, t0)
	b.UpdatedAt = updated
	return *b
}

func snapshotA() *domain.Snapshot {
	s := domain.NewSnapshot("device-a", "AAAAAA")
	s.Books = []domain.Book{
		book("b1", "A", t0),
		book("b2", "only in A", t0),
		book("b3", "A newer", t0.Add(3*time.Hour)),
	}
	s.Categories = append(s.Categories, *domain.NewCategory("c1", domain.CategoryInput{Name: "Local"}, t0))
	s.Notes = []domain.Note{*domain.NewNote("n1", domain.NoteInput{Title: "a"}, t0)}
	return s
}

func snapshotB() *domain.Snapshot {
	s := domain.NewSnapshot("device-b", "BBBBBB")
	s.Books = []domain.Book{
		book("b1", "B", t0.Add(24*time.Hour)),
		book("b3", "B older", t0.Add(time.Hour)),
		book("b4", "only in B", t0),
	}
	s.Categories = append(s.Categories, *domain.NewCategory("c2", domain.CategoryInput{Name: "Remote"}, t0))
	s.Projects = []domain.Project{*domain.NewProject("p1", domain.ProjectInput{Name: "remote"}, t0)}
	s.PDFAnnotations = []domain.PDFAnnotation{*domain.NewPDFAnnotation("pa1", domain.PDFAnnotationInput{BookID: "b4", Page: 2}, t0)}
	return s
}

func titles(books []domain.Book) map[string]string {
	out := make(map[string]string, len(books))
	for _, b := range books {
		out[b.ID] = b.Title
	}
	return out
}

func TestMergeByID_LastWriterWins(t *testing.T) {
	local := []domain.Book{book("b1", "A", t0)}
	remote := []domain.Book{book("b1", "B", t0.Add(24*time.Hour))}

	got := MergeByID(local, remote, syncableKey[domain.Book])
	require.Len(t, got, 1)
	assert.Equal(t, remote[0], got[0], "the newer record wins whole")

	got = MergeByID(remote, local, syncableKey[domain.Book])
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Title)
}

func TestMergeByID_TieKeepsLocal(t *testing.T) {
	local := []domain.Book{book("b1", "local", t0)}
	remote := []domain.Book{book("b1", "remote", t0)}

	got := MergeByID(local, remote, syncableKey[domain.Book])

	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0].Title)
}

func TestMergeByID_OrderAndInputsUntouched(t *testing.T) {
	local := []domain.Book{book("b2", "x", t0), book("b1", "y", t0)}
	remote := []domain.Book{book("b9", "z", t0), book("b1", "newer", t0.Add(time.Minute)), book("b8", "w", t0)}

	got := MergeByID(local, remote, syncableKey[domain.Book])

	ids := make([]string, len(got))
	for i, b := range got {
		ids[i] = b.ID
	}
	assert.Equal(t, []string{"b2", "b1", "b9", "b8"}, ids)
	assert.Equal(t, "y", local[1].Title)
}

func TestMergeSnapshots_Scenario(t *testing.T) {
	merged := MergeSnapshots(snapshotA(), snapshotB())

	assert.Equal(t, map[string]string{
		"b1": "B",
		"b2": "only in A",
		"b3": "A newer",
		"b4": "only in B",
	}, titles(merged.Books))

	var catIDs []string
	for _, c := range merged.Categories {
		catIDs = append(catIDs, c.ID)
	}
	assert.Contains(t, catIDs, "c1")
	assert.Contains(t, catIDs, "c2")
	assert.Len(t, merged.Projects, 1)
	assert.Len(t, merged.Notes, 1)
	assert.Len(t, merged.PDFAnnotations, 1)
	assert.Equal(t, "device-a", merged.Sync.DeviceID)
}

func TestMergeSnapshots_Commutative(t *testing.T) {
	ab := MergeSnapshots(snapshotA(), snapshotB())
	ba := MergeSnapshots(snapshotB(), snapshotA())

	assert.ElementsMatch(t, ab.Books, ba.Books)
	assert.ElementsMatch(t, ab.Categories, ba.Categories)
	assert.ElementsMatch(t, ab.PDFAnnotations, ba.PDFAnnotations)
	assert.ElementsMatch(t, ab.Projects, ba.Projects)
	assert.ElementsMatch(t, ab.Notes, ba.Notes)
}

func TestMergeSnapshots_Idempotent(t *testing.T) {
	a := snapshotA()

	merged := MergeSnapshots(a, a)

	assert.Equal(t, a.Books, merged.Books)
	assert.Equal(t, a.Categories, merged.Categories)
	assert.Equal(t, a.Notes, merged.Notes)
	assert.Equal(t, a.Projects, merged.Projects)
	assert.Equal(t, a.PDFAnnotations, merged.PDFAnnotations)
}

func TestMergeSnapshots_NoLoss(t *testing.T) {
	a, b := snapshotA(), snapshotB()
	merged := MergeSnapshots(a, b)

	got := titles(merged.Books)
	for _, src := range []*domain.Snapshot{a, b} {
		for _, bk := range src.Books {
			assert.Contains(t, got, bk.ID)
		}
	}
}

func TestMissingBlobs(t *testing.T) {
	s := snapshotA()
	s.Books[0].File = &domain.FileRef{BlobID: "file-here"}
	s.Books[1].File = &domain.FileRef{BlobID: "file-elsewhere"}

	missing := MissingBlobs(s, func(id string) bool { return id == "file-here" })

	assert.Equal(t, []string{"file-elsewhere"}, missing)
}
