package model

import "time"

// NotificationKind identifies which reminder of a task a record represents.
type NotificationKind string

const (
	KindThreeDaysBefore NotificationKind = "3_days_before"
	KindOneDayBefore    NotificationKind = "1_day_before"
	KindDueToday        NotificationKind = "due_today"
)

// Notification is a scheduled reminder for one task.
// Sent only ever moves from false to true.
type Notification struct {
	ID          uint             `gorm:"primaryKey"`
	UserID      int64            `gorm:"not null;index:idx_notifications_user_time,priority:1"`
	TaskID      uint             `gorm:"not null;uniqueIndex:idx_notifications_task_kind,priority:1"`
	Task        *Task            `gorm:"constraint:OnDelete:CASCADE"`
	Kind        NotificationKind `gorm:"column:notification_type;size:32;not null;uniqueIndex:idx_notifications_task_kind,priority:2"`
	ScheduledAt time.Time        `gorm:"column:notification_time;not null;index:idx_notifications_user_time,priority:2"`
	Sent        bool             `gorm:"column:is_sent;not null;default:false"`
	SentAt      *time.Time
	Attempts    int    `gorm:"not null;default:0"`
	Abandoned   bool   `gorm:"not null;default:false"`
	LastError   string `gorm:"size:500"`
	CreatedAt   time.Time
}
