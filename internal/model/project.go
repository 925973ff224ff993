package model

import "time"

// Project is a named container of tasks owned by one Telegram user.
type Project struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null;index:idx_projects_user_id"`
	Name      string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectSummary is a project with its task counters, as shown in the project list.
type ProjectSummary struct {
	Project
	TotalTasks int64
	OpenTasks  int64
}

// CompletedTasks is the number of tasks in status completed.
func (s ProjectSummary) CompletedTasks() int64 {
	return s.TotalTasks - s.OpenTasks
}
