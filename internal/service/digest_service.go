package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"task-planner/internal/model"
)

// digestWindow is how far ahead the daily digest looks.
const digestWindow = 2

// A digest lists at most digestLimit tasks with clipped titles so the message
// stays under Telegram's 4096 character limit.
const (
	digestLimit    = 20
	digestTitleLen = 60
	digestNameLen  = 30
)

// DigestService builds human-readable summaries for daily notifications.
type DigestService struct {
	projects ProjectStore
	tasks    TaskStore
	clock    Clock
	log      *zap.Logger
}

func NewDigestService(projects ProjectStore, tasks TaskStore, clock Clock, log *zap.Logger) *DigestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DigestService{projects: projects, tasks: tasks, clock: clock, log: log.Named("digest")}
}

// Summary lists the user's overdue tasks and tasks due in the next two days.
// The text is empty when there is nothing to report.
func (s *DigestService) Summary(ctx context.Context, userID int64) (string, error) {
	today := s.clock.Today()
	tasks, err := s.tasks.ListDueBy(ctx, userID, today.AddDate(0, 0, digestWindow), digestLimit+1)
	if err != nil {
		return "", err
	}
	more := len(tasks) > digestLimit
	if more {
		tasks = tasks[:digestLimit]
	}

	var overdue, soon []model.Task
	for _, task := range tasks {
		if task.Deadline.Before(today) {
			overdue = append(overdue, task)
		} else {
			soon = append(soon, task)
		}
	}
	if len(overdue) == 0 && len(soon) == 0 {
		return "", nil
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today.Format("02.01.2006")))

	if len(overdue) > 0 {
		builder.WriteString("⚠️ <b>Просроченные задачи</b>\n")
		for _, task := range overdue {
			builder.WriteString(formatDigestTask(task, today))
		}
		builder.WriteByte('\n')
	}

	builder.WriteString("🔥 <b>Ближайшие дедлайны</b>\n")
	if len(soon) == 0 {
		builder.WriteString("— нет задач на ближайшие дни\n")
	} else {
		for _, task := range soon {
			builder.WriteString(formatDigestTask(task, today))
		}
	}
	if more {
		builder.WriteString("\n<i>Показаны не все задачи, откройте /tasks.</i>\n")
	}

	return strings.TrimSpace(builder.String()), nil
}

// SendAll delivers the digest to every project owner. One owner's failure
// does not stop the others.
func (s *DigestService) SendAll(ctx context.Context, sender Sender) error {
	owners, err := s.projects.ListOwners(ctx)
	if err != nil {
		return err
	}
	sent := 0
	for _, userID := range owners {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text, err := s.Summary(ctx, userID)
		if err != nil {
			s.log.Warn("build digest failed", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		if err := sender.Deliver(ctx, userID, text); err != nil {
			s.log.Warn("send digest failed", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		sent++
	}
	s.log.Info("digest sent", zap.Int("owners", len(owners)), zap.Int("sent", sent))
	return nil
}

func formatDigestTask(task model.Task, today time.Time) string {
	var sb strings.Builder

	icon := "⏳"
	if task.Deadline.Before(today) {
		icon = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(Truncate(strings.TrimSpace(task.Title), digestTitleLen))))

	if task.Project != nil {
		if name := strings.TrimSpace(task.Project.Name); name != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(Truncate(name, digestNameLen))))
		}
	}

	d := model.DateOf(*task.Deadline)
	if d.Before(today) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ до %s, <b>просрочено</b>", d.Format("02.01.2006")))
	} else {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", FormatDate(&d, today)))
	}

	sb.WriteByte('\n')
	return sb.String()
}
