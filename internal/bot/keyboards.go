package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-planner/internal/conversation"
	"task-planner/internal/model"
	"task-planner/internal/service"
)

const (
	menuLabelProjects   = "📂 Мои проекты"
	menuLabelNewProject = "➕ Новый проект"
	menuLabelUpcoming   = "📅 Ближайшие задачи"
	menuLabelHelp       = "ℹ️ Помощь"
	menuLabelRestart    = "🔄 Перезапустить"
)

// tasksPerPage bounds the task list so the keyboard stays usable.
const tasksPerPage = 10

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelProjects),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewProject),
			tgbotapi.NewKeyboardButton(menuLabelUpcoming),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
			tgbotapi.NewKeyboardButton(menuLabelRestart),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(conversation.CancelLabel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func projectListKeyboard(projects []model.ProjectSummary) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(projects)+1)
	for _, p := range projects {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📁 "+service.Truncate(p.Name, 30), cb(ActProject, p.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", string(ActProjects)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func projectMenuKeyboard(projectID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Задачи", cbPage(ActTasks, projectID, 0)),
			tgbotapi.NewInlineKeyboardButtonData("➕ Задача", cb(ActAddTask, projectID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Выполненные", cb(ActCompleted, projectID)),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Переименовать", cb(ActRename, projectID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", cb(ActDeleteProject, projectID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад к проектам", string(ActProjects)),
		),
	)
}

func confirmProjectDeleteKeyboard(projectID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", cb(ActConfirmDelProject, projectID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет, отмена", cb(ActProject, projectID)),
		),
	)
}

// taskListKeyboard renders one page of open tasks; tasks must already be that page.
func taskListKeyboard(projectID uint, tasks []model.Task, page int, hasNext bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+service.Truncate(task.Title, 20), cbPage(ActCheck, task.ID, page)),
			tgbotapi.NewInlineKeyboardButtonData("🔎", cb(ActTask, task.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", cbPage(ActTasks, projectID, page-1)))
	}
	if hasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", cbPage(ActTasks, projectID, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Показать выполненные", cb(ActCompleted, projectID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить задачу", cb(ActAddTask, projectID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад к проекту", cb(ActProject, projectID)),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func completedKeyboard(projectID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Активные задачи", cbPage(ActTasks, projectID, 0)),
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить задачу", cb(ActAddTask, projectID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад к проекту", cb(ActProject, projectID)),
		),
	)
}

func taskCardKeyboard(task *model.Task) tgbotapi.InlineKeyboardMarkup {
	toggle := "✅ Выполнено"
	if task.Status == model.StatusCompleted {
		toggle = "↩️ Вернуть в работу"
	}
	first := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(toggle, cb(ActToggle, task.ID)))
	if task.Status != model.StatusCompleted && task.Status != model.StatusInProgress {
		first = append(first, tgbotapi.NewInlineKeyboardButtonData("🔄 В работе", cb(ActProgress, task.ID)))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		first,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Изменить дедлайн", cb(ActDeadline, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", cb(ActDeleteTask, task.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ К задачам", cbPage(ActTasks, task.ProjectID, 0)),
		),
	)
}

func confirmTaskDeleteKeyboard(taskID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да, удалить", cb(ActConfirmDeleteTask, taskID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет", cb(ActTask, taskID)),
		),
	)
}

// pageOf slices tasks into the requested page, clamping past-the-end pages to the last one.
func pageOf(tasks []model.Task, page int) ([]model.Task, int, bool) {
	if page < 0 {
		page = 0
	}
	if len(tasks) == 0 {
		return nil, 0, false
	}
	last := (len(tasks) - 1) / tasksPerPage
	if page > last {
		page = last
	}
	start := page * tasksPerPage
	end := start + tasksPerPage
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end], page, page < last
}

func pageLabel(page, total int) string {
	pages := (total + tasksPerPage - 1) / tasksPerPage
	if pages <= 1 {
		return ""
	}
	return fmt.Sprintf(" (стр. %d/%d)", page+1, pages)
}
