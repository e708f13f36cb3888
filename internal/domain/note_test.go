package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNote_ToggleRetainsCompletedAt(t *testing.T) {
	n := NewNote("note-1", NoteInput{Title: "Call", Type: NoteTypeTodo}, t0)
	require.True(t, n.Pending())

	done := t0.Add(time.Hour)
	n.Toggle(done)
	assert.True(t, n.Completed)
	require.NotNil(t, n.CompletedAt)
	assert.Equal(t, done, *n.CompletedAt)
	assert.False(t, n.Pending())

	undone := done.Add(time.Hour)
	n.Toggle(undone)
	assert.False(t, n.Completed)
	require.NotNil(t, n.CompletedAt, "history is kept when un-completing")
	assert.Equal(t, done, *n.CompletedAt)
	assert.Equal(t, undone, n.UpdatedAt)
}

func TestNote_ApplyDueDate(t *testing.T) {
	due := t0.Add(48 * time.Hour)
	n := NewNote("note-1", NoteInput{Title: "Review", DueDate: &due}, t0)
	assert.Equal(t, NoteTypeNote, n.Type)
	assert.Equal(t, PriorityMedium, n.Priority)
	require.NotNil(t, n.DueDate)

	n.Apply(NotePatch{ClearDue: true}, t0.Add(time.Second))
	assert.Nil(t, n.DueDate)
}

func TestProject_NewAndClone(t *testing.T) {
	p := NewProject("proj-1", ProjectInput{Name: "Thesis"}, t0)

	assert.Equal(t, ProjectOngoing, p.Status)
	assert.Equal(t, "2024-01-01", p.StartDate)
	assert.NotNil(t, p.Files)

	p.Files = append(p.Files, ProjectFile{ID: "pfile-1", BlobID: "file-1"}, ProjectFile{ID: "pfile-2"})
	c := p.Clone()
	c.Files[0].Name = "changed"

	assert.Empty(t, p.Files[0].Name)
	assert.Equal(t, []string{"file-1"}, p.BlobIDs())
	assert.Equal(t, 1, p.FindFile("pfile-2"))
}
