package library

import (
	"context"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/id"
)

// CreateProject adds a project with empty knowledge, lesson and file lists.
func (l *Library) CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, err
	}
	projectID, err := newID(id.PrefixProject)
	if err != nil {
		return nil, err
	}

	var created domain.Project
	if _, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		p := domain.NewProject(projectID, in, l.clock.Now())
		s.Projects = append(s.Projects, *p)
		created = p.Clone()
		return true, nil, nil
	}); err != nil {
		return &created, err
	}
	return &created, nil
}

// GetProject returns the project with the given id.
func (l *Library) GetProject(projectID string) (*domain.Project, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.snap.FindProject(projectID)
	if i < 0 {
		return nil, false
	}
	p := l.snap.Projects[i].Clone()
	return &p, true
}

// ListProjects returns all projects in library order.
func (l *Library) ListProjects() []domain.Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Project, len(l.snap.Projects))
	for i := range l.snap.Projects {
		out[i] = l.snap.Projects[i].Clone()
	}
	return out
}

// UpdateProject merges p onto the project. ok is false if it does not exist.
func (l *Library) UpdateProject(ctx context.Context, projectID string, p domain.ProjectPatch) (*domain.Project, bool, error) {
	if err := l.validate.Validate(p); err != nil {
		return nil, false, err
	}
	return l.editProject(ctx, projectID, func(pr *domain.Project) {
		pr.Apply(p, l.next(pr.UpdatedAt))
	})
}

// AddKnowledgeItem appends a knowledge item to the project.
func (l *Library) AddKnowledgeItem(ctx context.Context, projectID string, in domain.KnowledgeInput) (*domain.Project, bool, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, false, err
	}
	itemID, err := newID(id.PrefixKnowledge)
	if err != nil {
		return nil, false, err
	}
	return l.editProject(ctx, projectID, func(pr *domain.Project) {
		now := l.next(pr.UpdatedAt)
		pr.Knowledge = append(pr.Knowledge, domain.KnowledgeItem{
			ID: itemID, Title: in.Title, Content: in.Content, Category: in.Category, CreatedAt: now,
		})
		pr.Touch(now)
	})
}

// AddLessonItem appends a lesson to the project.
func (l *Library) AddLessonItem(ctx context.Context, projectID string, in domain.LessonInput) (*domain.Project, bool, error) {
	if err := l.validate.Validate(in); err != nil {
		return nil, false, err
	}
	itemID, err := newID(id.PrefixLesson)
	if err != nil {
		return nil, false, err
	}
	return l.editProject(ctx, projectID, func(pr *domain.Project) {
		now := l.next(pr.UpdatedAt)
		pr.Lessons = append(pr.Lessons, domain.LessonItem{
			ID: itemID, Title: in.Title, Content: in.Content, Type: in.Type, CreatedAt: now,
		})
		pr.Touch(now)
	})
}

func (l *Library) editProject(ctx context.Context, projectID string, edit func(*domain.Project)) (*domain.Project, bool, error) {
	var updated domain.Project
	found, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		i := s.FindProject(projectID)
		if i < 0 {
			return false, nil, nil
		}
		edit(&s.Projects[i])
		updated = s.Projects[i].Clone()
		return true, nil, nil
	})
	if !found {
		return nil, false, err
	}
	return &updated, true, err
}

// DeleteProject removes the project and the blobs of all its files in the
// same commit. Missing ids are a no-op.
func (l *Library) DeleteProject(ctx context.Context, projectID string) error {
	_, err := l.mutate(ctx, func(s *domain.Snapshot) (bool, []string, error) {
		removed, blobs := domain.RemoveProject(s, projectID)
		return removed, blobs, nil
	})
	return err
}
