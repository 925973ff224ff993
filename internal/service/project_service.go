package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"task-planner/internal/model"
)

// ProjectService owns project rules: name validation and ownership.
type ProjectService struct {
	projects ProjectStore
}

func NewProjectService(projects ProjectStore) *ProjectService {
	return &ProjectService{projects: projects}
}

// ValidateName trims name and checks it against the length cap.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxProjectNameLen {
		return "", ErrNameTooLong
	}
	return name, nil
}

func (s *ProjectService) Create(ctx context.Context, userID int64, name string) (*model.Project, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	project := model.Project{UserID: userID, Name: name}
	if err := s.projects.Create(ctx, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) List(ctx context.Context, userID int64) ([]model.ProjectSummary, error) {
	return s.projects.ListByUser(ctx, userID)
}

// Get returns the project only if userID owns it.
func (s *ProjectService) Get(ctx context.Context, userID int64, projectID uint) (*model.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err)
	}
	if project.UserID != userID {
		return nil, ErrNotFound
	}
	return project, nil
}

func (s *ProjectService) Rename(ctx context.Context, userID int64, projectID uint, name string) (*model.Project, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Rename(ctx, project.ID, name); err != nil {
		return nil, notFound(err)
	}
	project.Name = name
	return project, nil
}

// Delete removes the project with all its tasks and reminders.
func (s *ProjectService) Delete(ctx context.Context, userID int64, projectID uint) (*model.Project, error) {
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Delete(ctx, project.ID); err != nil {
		return nil, notFound(err)
	}
	return project, nil
}
