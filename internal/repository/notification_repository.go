package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-planner/internal/model"
)

// NotificationRepository stores scheduled reminders.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Add inserts reminders, silently skipping kinds already scheduled for the task.
func (r *NotificationRepository) Add(ctx context.Context, records []model.Notification) error {
	if len(records) == 0 {
		return nil
	}
	return add(r.db.WithContext(ctx), records)
}

// Replace drops every reminder of the task and schedules records instead.
func (r *NotificationRepository) Replace(ctx context.Context, taskID uint, records []model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.Notification{}).Error; err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		return add(tx, records)
	})
}

func add(db *gorm.DB, records []model.Notification) error {
	for i := range records {
		records[i].ScheduledAt = records[i].ScheduledAt.UTC()
	}
	if err := db.Omit("Task").Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error; err != nil {
		return fmt.Errorf("add notifications: %w", err)
	}
	return nil
}

// DeleteUnsent removes reminders of the task that have not been delivered yet.
func (r *NotificationRepository) DeleteUnsent(ctx context.Context, taskID uint) error {
	if err := r.db.WithContext(ctx).Where("task_id = ? AND is_sent = ?", taskID, false).
		Delete(&model.Notification{}).Error; err != nil {
		return fmt.Errorf("delete unsent notifications: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Notification{}, id).Error; err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// ListDue returns pending reminders scheduled at or before now, oldest first,
// with their task and project loaded.
func (r *NotificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	q := r.db.WithContext(ctx).Preload("Task.Project").
		Where("is_sent = ? AND abandoned = ? AND notification_time <= ?", false, false, now.UTC()).
		Order("notification_time ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []model.Notification
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	return records, nil
}

// ListByTask returns every record of a task, sent ones included.
func (r *NotificationRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Notification, error) {
	var records []model.Notification
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("notification_time ASC, id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list task notifications: %w", err)
	}
	return records, nil
}

// MarkSent flips is_sent once. It reports false when the record was already
// sent or no longer exists.
func (r *NotificationRepository) MarkSent(ctx context.Context, id uint, at time.Time) (bool, error) {
	at = at.UTC()
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND is_sent = ?", id, false).
		Updates(map[string]interface{}{"is_sent": true, "sent_at": &at})
	if res.Error != nil {
		return false, fmt.Errorf("mark notification sent: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RecordFailure counts a failed delivery attempt. abandon stops further retries.
func (r *NotificationRepository) RecordFailure(ctx context.Context, id uint, reason string, abandon bool) error {
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + ?", 1),
		"last_error": clipReason(reason),
	}
	if abandon {
		updates["abandoned"] = true
	}
	if err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND is_sent = ?", id, false).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("record notification failure: %w", err)
	}
	return nil
}

const lastErrorLen = 500

// clipReason keeps last_error within its column and valid UTF-8.
func clipReason(reason string) string {
	reason = strings.ToValidUTF8(reason, "")
	r := []rune(reason)
	if len(r) > lastErrorLen {
		return string(r[:lastErrorLen])
	}
	return reason
}
