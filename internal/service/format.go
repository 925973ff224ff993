package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"task-planner/internal/model"
)

// FormatDate renders a deadline relative to today.
func FormatDate(d *time.Time, today time.Time) string {
	if d == nil {
		return "⏳ Без срока"
	}
	day := model.DateOf(*d)
	today = model.DateOf(today)
	switch {
	case day.Equal(today):
		return "⏰ Сегодня"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "📅 Завтра"
	}
	return day.Format("02.01.2006")
}

// StatusIcon is the marker shown next to a task.
func StatusIcon(s model.TaskStatus) string {
	switch s {
	case model.StatusCompleted:
		return "✅"
	case model.StatusInProgress:
		return "🔄"
	case model.StatusOverdue:
		return "⚠️"
	}
	return "⬜"
}

// StatusLabel is the human name of a status.
func StatusLabel(s model.TaskStatus) string {
	switch s {
	case model.StatusCompleted:
		return "выполнена"
	case model.StatusInProgress:
		return "в работе"
	case model.StatusOverdue:
		return "просрочена"
	}
	return "ожидает"
}

// ReminderText builds the HTML message for one reminder.
func ReminderText(n model.Notification, today time.Time) string {
	var sb strings.Builder

	switch n.Kind {
	case model.KindThreeDaysBefore:
		sb.WriteString("🔔 <b>Через 3 дня дедлайн</b>\n\n")
	case model.KindOneDayBefore:
		sb.WriteString("🔔 <b>Завтра дедлайн</b>\n\n")
	default:
		sb.WriteString("⏰ <b>Сегодня дедлайн</b>\n\n")
	}

	if n.Task == nil {
		return strings.TrimSpace(sb.String())
	}
	task := n.Task
	sb.WriteString(fmt.Sprintf("📝 <b>%s</b>\n", html.EscapeString(task.Title)))
	if task.Project != nil {
		sb.WriteString(fmt.Sprintf("📁 Проект: <i>%s</i>\n", html.EscapeString(task.Project.Name)))
	}
	sb.WriteString(fmt.Sprintf("📅 Дедлайн: %s\n", FormatDate(task.Deadline, today)))
	if desc := strings.TrimSpace(task.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", html.EscapeString(desc)))
	}
	return strings.TrimSpace(sb.String())
}

// Truncate cuts s to n runes, adding an ellipsis when something was cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
