package bot

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"task-planner/internal/model"
	"task-planner/internal/service"
)

const telegramTextLimit = 4096

var renderToday = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func longProject() *model.Project {
	return &model.Project{ID: 1, UserID: 100, Name: strings.Repeat("п", service.MaxProjectNameLen)}
}

func longTasks(n int, status model.TaskStatus) []model.Task {
	project := longProject()
	tasks := make([]model.Task, n)
	for i := range tasks {
		deadline := renderToday.AddDate(0, 0, i-n/2)
		done := renderToday
		tasks[i] = model.Task{
			ID:          uint(i + 1),
			ProjectID:   project.ID,
			Project:     project,
			Title:       strings.Repeat("я", service.MaxTaskTitleLen),
			Deadline:    &deadline,
			Status:      status,
			CompletedAt: &done,
		}
	}
	return tasks
}

func assertFits(t *testing.T, text string) {
	t.Helper()
	assert.LessOrEqual(t, utf8.RuneCountInString(text), telegramTextLimit)
}

func TestTaskListText_FitsWithLongTitles(t *testing.T) {
	tasks := longTasks(35, model.StatusPending)
	page, n, _ := pageOf(tasks, 0)

	text := taskListText(longProject(), page, n*tasksPerPage, len(tasks), n, renderToday)
	assertFits(t, text)
	assert.Contains(t, text, strings.Repeat("я", listTitleLen)+"...")
	assert.NotContains(t, text, strings.Repeat("я", listTitleLen+1))
}

func TestCompletedText_CapsRows(t *testing.T) {
	text := completedText(longProject(), longTasks(40, model.StatusCompleted), renderToday)
	assertFits(t, text)
	assert.Equal(t, completedShown, strings.Count(text, "🏁"))
	assert.Contains(t, text, "и ещё 25")

	text = completedText(longProject(), longTasks(3, model.StatusCompleted), renderToday)
	assert.Equal(t, 3, strings.Count(text, "🏁"))
	assert.NotContains(t, text, "и ещё")
}

func TestProjectListText_CapsRows(t *testing.T) {
	projects := make([]model.ProjectSummary, 30)
	for i := range projects {
		projects[i] = model.ProjectSummary{Project: *longProject(), TotalTasks: 999, OpenTasks: 999}
		projects[i].ID = uint(i + 1)
	}

	text := projectListText(projects)
	assertFits(t, text)
	assert.Contains(t, text, "(всего: 30)")
	assert.Contains(t, text, "и ещё 10")
}

func TestUpcomingText_FitsAtLimit(t *testing.T) {
	text := upcomingText(longTasks(upcomingLimit, model.StatusPending), 14, renderToday)
	assertFits(t, text)
	assert.Equal(t, upcomingLimit, strings.Count(text, "📁"))
}
