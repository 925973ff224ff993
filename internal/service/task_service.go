package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"task-planner/internal/model"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	ProjectID   uint
	Title       string
	Description string
	Deadline    *time.Time
}

// Clock describes where "now" and "today" come from.
type Clock struct {
	Location *time.Location
	// ReminderHour is the local hour reminders fire at.
	ReminderHour int
	Now          func() time.Time
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Today is the current calendar date in the configured location.
func (c Clock) Today() time.Time {
	return model.DateOf(c.now().In(c.location()))
}

// TaskService wraps task-related business logic.
type TaskService struct {
	projects ProjectStore
	tasks    TaskStore
	notes    NotificationStore
	clock    Clock
	log      *zap.Logger
}

func NewTaskService(projects ProjectStore, tasks TaskStore, notes NotificationStore, clock Clock, log *zap.Logger) *TaskService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskService{projects: projects, tasks: tasks, notes: notes, clock: clock, log: log}
}

// Today is the current calendar date as seen by the service.
func (s *TaskService) Today() time.Time {
	return s.clock.Today()
}

// ValidateTitle trims title and checks it against the length cap.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTaskTitleLen {
		return "", ErrTitleTooLong
	}
	return title, nil
}

func (s *TaskService) Create(ctx context.Context, userID int64, input TaskInput) (*model.Task, error) {
	title, err := ValidateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	project, err := s.ownedProject(ctx, userID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		ProjectID:   project.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Deadline:    dateOnly(input.Deadline),
		Status:      model.StatusPending,
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	task.Project = project

	if plan := s.ReminderPlan(userID, task); len(plan) > 0 {
		if err := s.notes.Add(ctx, plan); err != nil {
			// The task itself is stored; a missing reminder is not worth failing the wizard.
			s.log.Warn("schedule reminders failed", zap.Uint("task_id", task.ID), zap.Error(err))
		}
	}
	return &task, nil
}

// Get returns the task with its project, only if userID owns the project.
func (s *TaskService) Get(ctx context.Context, userID int64, taskID uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	project, err := s.ownedProject(ctx, userID, task.ProjectID)
	if err != nil {
		return nil, err
	}
	task.Project = project
	return task, nil
}

// ListByProject returns the open (or all) tasks of an owned project.
func (s *TaskService) ListByProject(ctx context.Context, userID int64, projectID uint, includeCompleted bool) (*model.Project, []model.Task, error) {
	project, err := s.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, project.ID, includeCompleted)
	if err != nil {
		return nil, nil, err
	}
	return project, tasks, nil
}

func (s *TaskService) ListCompleted(ctx context.Context, userID int64, projectID uint) (*model.Project, []model.Task, error) {
	project, err := s.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.tasks.ListCompleted(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}
	return project, tasks, nil
}

// Upcoming returns open tasks of all the user's projects due within days
// from today, overdue ones included.
func (s *TaskService) Upcoming(ctx context.Context, userID int64, days int, limit int) ([]model.Task, error) {
	until := s.clock.Today().AddDate(0, 0, days)
	return s.tasks.ListDueBy(ctx, userID, until, limit)
}

// Toggle flips a task between completed and pending.
func (s *TaskService) Toggle(ctx context.Context, userID int64, taskID uint) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	next := model.StatusCompleted
	if task.Status == model.StatusCompleted {
		next = model.StatusPending
	}
	return s.setStatus(ctx, userID, task, next)
}

// SetStatus moves an owned task to status. Completing drops unsent reminders,
// reopening schedules them again.
func (s *TaskService) SetStatus(ctx context.Context, userID int64, taskID uint, status model.TaskStatus) (*model.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown task status %q", status)
	}
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == status {
		return task, nil
	}
	return s.setStatus(ctx, userID, task, status)
}

func (s *TaskService) setStatus(ctx context.Context, userID int64, task *model.Task, status model.TaskStatus) (*model.Task, error) {
	var completedAt *time.Time
	if status == model.StatusCompleted {
		now := s.clock.now().UTC()
		completedAt = &now
	}
	if err := s.tasks.SetStatus(ctx, task.ID, status, completedAt); err != nil {
		return nil, notFound(err)
	}
	wasCompleted := task.Status == model.StatusCompleted
	task.Status = status
	task.CompletedAt = completedAt

	switch {
	case status == model.StatusCompleted:
		if err := s.notes.DeleteUnsent(ctx, task.ID); err != nil {
			s.log.Warn("drop reminders failed", zap.Uint("task_id", task.ID), zap.Error(err))
		}
	case wasCompleted:
		if plan := s.ReminderPlan(userID, *task); len(plan) > 0 {
			if err := s.notes.Add(ctx, plan); err != nil {
				s.log.Warn("reschedule reminders failed", zap.Uint("task_id", task.ID), zap.Error(err))
			}
		}
	}
	return task, nil
}

// UpdateDeadline replaces the deadline (nil clears it) and rebuilds the reminder schedule.
func (s *TaskService) UpdateDeadline(ctx context.Context, userID int64, taskID uint, deadline *time.Time) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	deadline = dateOnly(deadline)
	if err := s.tasks.SetDeadline(ctx, task.ID, deadline); err != nil {
		return nil, notFound(err)
	}
	task.Deadline = deadline

	// A task that is no longer late goes back to pending.
	if task.Status == model.StatusOverdue && !task.IsOverdueOn(s.clock.Today()) {
		if err := s.tasks.SetStatus(ctx, task.ID, model.StatusPending, nil); err != nil {
			return nil, notFound(err)
		}
		task.Status = model.StatusPending
	}

	var plan []model.Notification
	if task.Status.Open() {
		plan = s.ReminderPlan(userID, *task)
	}
	if err := s.notes.Replace(ctx, task.ID, plan); err != nil {
		s.log.Warn("reschedule reminders failed", zap.Uint("task_id", task.ID), zap.Error(err))
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID int64, taskID uint) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

var reminderOffsets = []struct {
	kind model.NotificationKind
	days int
}{
	{model.KindThreeDaysBefore, -3},
	{model.KindOneDayBefore, -1},
	{model.KindDueToday, 0},
}

// ReminderPlan lists the reminders a task should get: three days before,
// one day before and on the deadline, each at the reminder hour. Times that
// already passed are left out.
func (s *TaskService) ReminderPlan(userID int64, task model.Task) []model.Notification {
	if task.Deadline == nil {
		return nil
	}
	loc := s.clock.location()
	now := s.clock.now()
	y, m, d := task.Deadline.Date()

	var plan []model.Notification
	for _, o := range reminderOffsets {
		at := time.Date(y, m, d+o.days, s.clock.ReminderHour, 0, 0, 0, loc)
		if !at.After(now) {
			continue
		}
		plan = append(plan, model.Notification{
			UserID:      userID,
			TaskID:      task.ID,
			Kind:        o.kind,
			ScheduledAt: at.UTC(),
		})
	}
	return plan
}

func (s *TaskService) ownedProject(ctx context.Context, userID int64, projectID uint) (*model.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err)
	}
	if project.UserID != userID {
		return nil, ErrNotFound
	}
	return project, nil
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.DateOf(*t)
	return &d
}
