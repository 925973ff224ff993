package model

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusOverdue    TaskStatus = "overdue"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// Open reports whether the task still needs work.
func (s TaskStatus) Open() bool {
	return s != StatusCompleted
}

// Task represents a single item of work inside a project.
type Task struct {
	ID          uint     `gorm:"primaryKey"`
	ProjectID   uint     `gorm:"not null;index:idx_tasks_project_id"`
	Project     *Project `gorm:"constraint:OnDelete:CASCADE"`
	Title       string   `gorm:"size:500;not null"`
	Description string
	// Deadline is a calendar date stored as midnight UTC; see DateOf.
	Deadline    *time.Time `gorm:"type:date;index:idx_tasks_status_deadline,priority:2"`
	Status      TaskStatus `gorm:"size:20;not null;default:pending;index:idx_tasks_status_deadline,priority:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// IsOverdueOn reports whether an open task's deadline lies before today.
func (t Task) IsOverdueOn(today time.Time) bool {
	return t.Status.Open() && t.Deadline != nil && t.Deadline.Before(DateOf(today))
}
