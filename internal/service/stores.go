package service

import (
	"context"
	"time"

	"task-planner/internal/model"
)

// ProjectStore is the persistence the services need for projects.
// Implemented by repository.ProjectRepository and repository.OfflineProjects.
type ProjectStore interface {
	Create(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id uint) (*model.Project, error)
	ListByUser(ctx context.Context, userID int64) ([]model.ProjectSummary, error)
	Rename(ctx context.Context, id uint, name string) error
	Delete(ctx context.Context, id uint) error
	ListOwners(ctx context.Context) ([]int64, error)
}

type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uint) (*model.Task, error)
	ListByProject(ctx context.Context, projectID uint, includeCompleted bool) ([]model.Task, error)
	ListCompleted(ctx context.Context, projectID uint) ([]model.Task, error)
	ListDueBy(ctx context.Context, userID int64, until time.Time, limit int) ([]model.Task, error)
	SetStatus(ctx context.Context, id uint, status model.TaskStatus, completedAt *time.Time) error
	SetDeadline(ctx context.Context, id uint, deadline *time.Time) error
	Delete(ctx context.Context, id uint) error
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
}

type NotificationStore interface {
	Add(ctx context.Context, records []model.Notification) error
	Replace(ctx context.Context, taskID uint, records []model.Notification) error
	DeleteUnsent(ctx context.Context, taskID uint) error
	Delete(ctx context.Context, id uint) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id uint, at time.Time) (bool, error)
	RecordFailure(ctx context.Context, id uint, reason string, abandon bool) error
}
