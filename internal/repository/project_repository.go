package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"task-planner/internal/model"
)

// ProjectRepository manages projects.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

type taskCounter struct {
	ProjectID  uint
	TotalCount int64
	OpenCount  int64
}

// ListByUser returns the user's projects, newest first, with task counters.
func (r *ProjectRepository) ListByUser(ctx context.Context, userID int64) ([]model.ProjectSummary, error) {
	db := r.db.WithContext(ctx)

	var projects []model.Project
	if err := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	var counters []taskCounter
	if err := db.Model(&model.Task{}).
		Select("project_id, COUNT(*) AS total_count, COUNT(CASE WHEN status <> ? THEN 1 END) AS open_count", model.StatusCompleted).
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&counters).Error; err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	byProject := make(map[uint]taskCounter, len(counters))
	for _, c := range counters {
		byProject[c.ProjectID] = c
	}

	summaries := make([]model.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		c := byProject[p.ID]
		summaries = append(summaries, model.ProjectSummary{Project: p, TotalTasks: c.TotalCount, OpenTasks: c.OpenCount})
	}
	return summaries, nil
}

func (r *ProjectRepository) Rename(ctx context.Context, id uint, name string) error {
	res := r.db.WithContext(ctx).Model(&model.Project{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return fmt.Errorf("rename project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the project together with its tasks and their notifications.
func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&model.Task{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("delete project notifications: %w", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		res := tx.Delete(&model.Project{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListOwners returns every user that owns at least one project.
func (r *ProjectRepository) ListOwners(ctx context.Context) ([]int64, error) {
	var owners []int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).Distinct().Order("user_id").Pluck("user_id", &owners).Error; err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}
