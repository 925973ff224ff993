package repository

import (
	"context"
	"time"

	"task-planner/internal/model"
)

// The Offline* stores stand in for the real repositories when no database
// could be opened. Lists come back empty, everything else fails with
// ErrUnavailable so the user gets a clear error instead of a silent no-op.

type OfflineProjects struct{}

func (OfflineProjects) Create(context.Context, *model.Project) error { return ErrUnavailable }
func (OfflineProjects) FindByID(context.Context, uint) (*model.Project, error) {
	return nil, ErrUnavailable
}
func (OfflineProjects) ListByUser(context.Context, int64) ([]model.ProjectSummary, error) {
	return nil, nil
}
func (OfflineProjects) Rename(context.Context, uint, string) error { return ErrUnavailable }
func (OfflineProjects) Delete(context.Context, uint) error         { return ErrUnavailable }
func (OfflineProjects) ListOwners(context.Context) ([]int64, error) {
	return nil, nil
}

type OfflineTasks struct{}

func (OfflineTasks) Create(context.Context, *model.Task) error { return ErrUnavailable }
func (OfflineTasks) FindByID(context.Context, uint) (*model.Task, error) {
	return nil, ErrUnavailable
}
func (OfflineTasks) ListByProject(context.Context, uint, bool) ([]model.Task, error) {
	return nil, nil
}
func (OfflineTasks) ListCompleted(context.Context, uint) ([]model.Task, error) { return nil, nil }
func (OfflineTasks) ListDueBy(context.Context, int64, time.Time, int) ([]model.Task, error) {
	return nil, nil
}
func (OfflineTasks) SetStatus(context.Context, uint, model.TaskStatus, *time.Time) error {
	return ErrUnavailable
}
func (OfflineTasks) SetDeadline(context.Context, uint, *time.Time) error { return ErrUnavailable }
func (OfflineTasks) Delete(context.Context, uint) error                  { return ErrUnavailable }
func (OfflineTasks) MarkOverdue(context.Context, time.Time) (int64, error) {
	return 0, ErrUnavailable
}

type OfflineNotifications struct{}

func (OfflineNotifications) Add(context.Context, []model.Notification) error { return ErrUnavailable }
func (OfflineNotifications) Replace(context.Context, uint, []model.Notification) error {
	return ErrUnavailable
}
func (OfflineNotifications) DeleteUnsent(context.Context, uint) error { return ErrUnavailable }
func (OfflineNotifications) Delete(context.Context, uint) error       { return ErrUnavailable }
func (OfflineNotifications) ListDue(context.Context, time.Time, int) ([]model.Notification, error) {
	return nil, nil
}
func (OfflineNotifications) MarkSent(context.Context, uint, time.Time) (bool, error) {
	return false, ErrUnavailable
}
func (OfflineNotifications) RecordFailure(context.Context, uint, string, bool) error {
	return ErrUnavailable
}
