package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"task-planner/internal/conversation"
	"task-planner/internal/model"
	"task-planner/internal/service"
)

// view is what a callback leaves on screen: the edited message and an
// optional toast for the button press.
type view struct {
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
	notice string
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		b.answer(q.ID, "")
		return nil
	}

	c, err := ParseCallback(q.Data)
	if err != nil {
		b.alert(q.ID, "❌ Неизвестное действие.")
		return err
	}

	v, err := b.routeCallback(ctx, q.Message.Chat.ID, q.From.ID, c)
	if err != nil {
		b.alert(q.ID, alertText(err))
		return fmt.Errorf("callback %s: %w", c, err)
	}
	b.answer(q.ID, v.notice)

	if v.text == "" {
		return nil
	}
	return b.edit(q.Message.Chat.ID, q.Message.MessageID, v.text, v.markup)
}

// routeCallback performs the action. Every id it gets is checked against
// the acting user by the services before anything is read or changed.
func (b *Bot) routeCallback(ctx context.Context, chatID, userID int64, c Callback) (view, error) {
	today := b.tasks.Today()

	switch c.Action {
	case ActProjects:
		projects, err := b.projects.List(ctx, userID)
		if err != nil {
			return view{}, err
		}
		return withMarkup(projectListText(projects), projectListKeyboard(projects)), nil

	case ActProject:
		text, kb, err := b.projectMenu(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		return withMarkup(text, kb), nil

	case ActTasks:
		return b.taskListView(ctx, userID, c.ID, c.Page, "")

	case ActCompleted:
		project, tasks, err := b.tasks.ListCompleted(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		return withMarkup(completedText(project, tasks, today), completedKeyboard(project.ID)), nil

	case ActAddTask:
		project, err := b.projects.Get(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		prev, err := b.machine.StartTask(ctx, userID, project)
		if err != nil {
			return view{}, err
		}
		return view{}, b.sendWithReplyMarkup(chatID, wizardPrompt(prev != conversation.StepIdle, newTaskPrompt(project)), cancelKeyboard())

	case ActRename:
		project, err := b.projects.Get(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		prev, err := b.machine.StartRename(ctx, userID, project)
		if err != nil {
			return view{}, err
		}
		return view{}, b.sendWithReplyMarkup(chatID, wizardPrompt(prev != conversation.StepIdle, renamePrompt(project)), cancelKeyboard())

	case ActDeleteProject:
		project, err := b.projects.Get(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		text := fmt.Sprintf("⚠️ <b>Удалить проект '%s'?</b>\n\nВсе задачи проекта и напоминания по ним будут удалены.", escape(project.Name))
		return withMarkup(text, confirmProjectDeleteKeyboard(project.ID)), nil

	case ActConfirmDelProject:
		project, err := b.projects.Delete(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		projects, err := b.projects.List(ctx, userID)
		if err != nil {
			return view{}, err
		}
		text := fmt.Sprintf("🗑 <b>Проект '%s' удалён.</b>\n\n", escape(service.Truncate(project.Name, listNameLen))) + projectListText(projects)
		v := withMarkup(text, projectListKeyboard(projects))
		v.notice = "🗑 Проект удалён"
		return v, nil

	case ActTask:
		task, err := b.tasks.Get(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		return withMarkup(taskCardText(task, today), taskCardKeyboard(task)), nil

	case ActCheck:
		task, err := b.tasks.Toggle(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		return b.taskListView(ctx, userID, task.ProjectID, c.Page, toggleNotice(task))

	case ActToggle:
		task, err := b.tasks.Toggle(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		v := withMarkup(taskCardText(task, today), taskCardKeyboard(task))
		v.notice = toggleNotice(task)
		return v, nil

	case ActProgress:
		task, err := b.tasks.SetStatus(ctx, userID, c.ID, model.StatusInProgress)
		if err != nil {
			return view{}, err
		}
		v := withMarkup(taskCardText(task, today), taskCardKeyboard(task))
		v.notice = "🔄 Задача в работе"
		return v, nil

	case ActDeadline:
		task, err := b.tasks.Get(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		prev, err := b.machine.StartDeadlineEdit(ctx, userID, task)
		if err != nil {
			return view{}, err
		}
		return view{}, b.sendWithReplyMarkup(chatID, wizardPrompt(prev != conversation.StepIdle, deadlineEditPrompt(task, today)), cancelKeyboard())

	case ActDeleteTask:
		task, err := b.tasks.Get(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		text := fmt.Sprintf("⚠️ <b>Удалить задачу?</b>\n\n📝 %s", escape(task.Title))
		return withMarkup(text, confirmTaskDeleteKeyboard(task.ID)), nil

	case ActConfirmDeleteTask:
		task, err := b.tasks.Delete(ctx, userID, c.ID)
		if err != nil {
			return view{}, err
		}
		return b.taskListView(ctx, userID, task.ProjectID, 0, "🗑 Задача удалена")
	}
	return view{}, fmt.Errorf("%w: unhandled action %q", ErrMalformedPayload, c.Action)
}

func (b *Bot) taskListView(ctx context.Context, userID int64, projectID uint, page int, notice string) (view, error) {
	project, tasks, err := b.tasks.ListByProject(ctx, userID, projectID, false)
	if err != nil {
		return view{}, err
	}
	shown, page, hasNext := pageOf(tasks, page)
	text := taskListText(project, shown, page*tasksPerPage, len(tasks), page, b.tasks.Today())
	v := withMarkup(text, taskListKeyboard(project.ID, shown, page, hasNext))
	v.notice = notice
	return v, nil
}

func withMarkup(text string, kb tgbotapi.InlineKeyboardMarkup) view {
	return view{text: text, markup: &kb}
}

func toggleNotice(task *model.Task) string {
	if task.Status == model.StatusCompleted {
		return "✅ Задача выполнена!"
	}
	return "↩️ Задача возвращена в работу"
}

// alert shows a modal answer to a button press.
func (b *Bot) alert(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		b.log.Debug("callback alert", zap.Error(SafeError("answer callback", err)))
	}
}

// alertText is errorText without markup; callback answers are plain text.
func alertText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return textNotFound
	case errors.Is(err, service.ErrUnavailable):
		return "⚠️ Хранилище недоступно. Попробуйте позже."
	}
	return "❌ Произошла ошибка. Попробуйте позже."
}
