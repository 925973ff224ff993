package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-planner/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("Project").Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// ListByProject returns tasks ordered by deadline (undated last), then newest first.
func (r *TaskRepository) ListByProject(ctx context.Context, projectID uint, includeCompleted bool) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if !includeCompleted {
		q = q.Where("status <> ?", model.StatusCompleted)
	}
	var tasks []model.Task
	if err := q.Order("CASE WHEN deadline IS NULL THEN 1 ELSE 0 END, deadline ASC, created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListCompleted returns completed tasks of a project, most recently completed first.
func (r *TaskRepository) ListCompleted(ctx context.Context, projectID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, model.StatusCompleted).
		Order("completed_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	return tasks, nil
}

// ListDueBy returns the user's open dated tasks with deadline <= until, with their project loaded.
func (r *TaskRepository) ListDueBy(ctx context.Context, userID int64, until time.Time, limit int) ([]model.Task, error) {
	db := r.db.WithContext(ctx)
	owned := db.Model(&model.Project{}).Select("id").Where("user_id = ?", userID)

	q := db.Preload("Project").
		Where("project_id IN (?)", owned).
		Where("status <> ? AND deadline IS NOT NULL AND deadline <= ?", model.StatusCompleted, until).
		Order("deadline ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var tasks []model.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	return tasks, nil
}

// SetStatus stores the new status and completion time.
func (r *TaskRepository) SetStatus(ctx context.Context, id uint, status model.TaskStatus, completedAt *time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("set task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) SetDeadline(ctx context.Context, id uint, deadline *time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Updates(map[string]interface{}{"deadline": deadline})
	if res.Error != nil {
		return fmt.Errorf("set task deadline: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task and its notifications.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("delete task notifications: %w", err)
		}
		res := tx.Delete(&model.Task{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// MarkOverdue reclassifies open tasks whose deadline is before today.
// Running it again without the date changing affects no rows.
func (r *TaskRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("deadline IS NOT NULL AND deadline < ?", model.DateOf(today)).
		Where("status IN ?", []model.TaskStatus{model.StatusPending, model.StatusInProgress}).
		Updates(map[string]interface{}{"status": model.StatusOverdue})
	if res.Error != nil {
		return 0, fmt.Errorf("mark overdue: %w", res.Error)
	}
	return res.RowsAffected, nil
}
