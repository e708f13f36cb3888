package library

import (
	"context"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/id"
)

// CreateNote adds a note.
func (l *Library) CreateNote(ctx context.Context, in domain.NoteInput) (*domain.Note, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, err
	}
	noteID, err := newID(id.PrefixNote)
	if err != nil {
		return nil, err
	}

	var created domain.Note
	if _, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		n := domain.NewNote(noteID, in, l.clock.Now())
		s.Notes = append(s.Notes, *n)
		created = n.Clone()
		return true, nil, nil
	}); err != nil {
		return &created, err
	}
	return &created, nil
}

// GetNote returns the note with the given id.
func (l *Library) GetNote(noteID string) (*domain.Note, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.snap.FindNote(noteID)
	if i < 0 {
		return nil, false
	}
	n := l.snap.Notes[i].Clone()
	return &n, true
}

// ListNotes returns all notes in library order.
func (l *Library) ListNotes() []domain.Note {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Note, len(l.snap.Notes))
	for i := range l.snap.Notes {
		out[i] = l.snap.Notes[i].Clone()
	}
	return out
}

// UpdateNote merges p onto the note. ok is false if it does not exist.
func (l *Library) UpdateNote(ctx context.Context, noteID string, p domain.NotePatch) (*domain.Note, bool, error) {
	if err := l.validate.Validate(p); err != nil {
		return nil, false, err
	}
	return l.editNote(ctx, noteID, func(n *domain.Note) { n.Apply(p, l.next(n.UpdatedAt)) })
}

// ToggleNote flips a note's completion. Completing stamps completedAt;
// un-completing keeps the earlier completedAt.
func (l *Library) ToggleNote(ctx context.Context, noteID string) (*domain.Note, bool, error) {
	return l.editNote(ctx, noteID, func(n *domain.Note) { n.Toggle(l.next(n.UpdatedAt)) })
}

func (l *Library) editNote(ctx context.Context, noteID string, edit func(*domain.Note)) (*domain.Note, bool, error) {
	var updated domain.Note
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindNote(noteID)
		if i < 0 {
			return false, nil, nil
		}
		edit(&s.Notes[i])
		updated = s.Notes[i].Clone()
		return true, nil, nil
	})
	if !found {
		return nil, false, err
	}
	return &updated, true, err
}

// DeleteNote removes the note. Missing ids are a no-op.
func (l *Library) DeleteNote(ctx context.Context, noteID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindNote(noteID)
		if i < 0 {
			return false, nil, nil
		}
		s.Notes = append(s.Notes[:i], s.Notes[i+1:]...)
		return true, nil, nil
	})
	return err
}
