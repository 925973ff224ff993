package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"task-planner/internal/conversation"
	"task-planner/internal/logger"
	"task-planner/internal/model"
	"task-planner/internal/service"
)

// upcomingLimit caps the upcoming-tasks view.
const upcomingLimit = 20

// handleMessage routes a private text message. Commands and menu labels always
// win; any other text goes to the user's running wizard first.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return b.handleCommand(ctx, chatID, userID, msg.Command())
	}

	text := strings.TrimSpace(msg.Text)
	switch text {
	case menuLabelProjects:
		return b.showProjects(ctx, chatID, userID, b.resetSession(ctx, userID))
	case menuLabelNewProject:
		return b.startProjectWizard(ctx, chatID, userID)
	case menuLabelUpcoming:
		return b.showUpcoming(ctx, chatID, userID, b.resetSession(ctx, userID))
	case menuLabelHelp:
		return b.sendWithReplyMarkup(chatID, wizardPrompt(b.resetSession(ctx, userID), helpText()), mainMenuKeyboard())
	case menuLabelRestart:
		return b.sendWithReplyMarkup(chatID, wizardPrompt(b.resetSession(ctx, userID), welcomeText()), mainMenuKeyboard())
	}

	if text == "" {
		return b.sendWithReplyMarkup(chatID, textFallback, mainMenuKeyboard())
	}
	return b.replyWizard(ctx, chatID, userID, b.machine.Handle(ctx, userID, text))
}

func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, command string) error {
	switch command {
	case "start":
		return b.sendWithReplyMarkup(chatID, wizardPrompt(b.resetSession(ctx, userID), welcomeText()), mainMenuKeyboard())
	case "help":
		return b.sendWithReplyMarkup(chatID, wizardPrompt(b.resetSession(ctx, userID), helpText()), mainMenuKeyboard())
	case "projects":
		return b.showProjects(ctx, chatID, userID, b.resetSession(ctx, userID))
	case "tasks":
		return b.showUpcoming(ctx, chatID, userID, b.resetSession(ctx, userID))
	case "newproject":
		return b.startProjectWizard(ctx, chatID, userID)
	case "digest":
		return b.showDigest(ctx, chatID, userID, b.resetSession(ctx, userID))
	case "cancel":
		step, err := b.machine.Cancel(ctx, userID)
		if err != nil {
			return b.sendFailure(chatID, err)
		}
		if step == conversation.StepIdle {
			return b.sendWithReplyMarkup(chatID, "🤷 Нечего отменять.", mainMenuKeyboard())
		}
		return b.sendWithReplyMarkup(chatID, "❌ Действие отменено.", mainMenuKeyboard())
	}
	return b.sendWithReplyMarkup(chatID, "❓ Неизвестная команда. Отправьте /help для списка команд.", mainMenuKeyboard())
}

// resetSession clears any running wizard and reports whether one was abandoned.
func (b *Bot) resetSession(ctx context.Context, userID int64) bool {
	step, err := b.machine.Cancel(ctx, userID)
	log := logger.FromContext(ctx, b.log)
	if err != nil {
		log.Warn("reset session", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	if step != conversation.StepIdle {
		log.Info("wizard abandoned by command", zap.Int64("user_id", userID), zap.String("abandoned", string(step)))
		return true
	}
	return false
}

func (b *Bot) sendFailure(chatID int64, err error) error {
	if sendErr := b.sendWithReplyMarkup(chatID, errorText(err), mainMenuKeyboard()); sendErr != nil {
		return sendErr
	}
	return err
}

func (b *Bot) showProjects(ctx context.Context, chatID, userID int64, abandoned bool) error {
	projects, err := b.projects.List(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, err)
	}
	return b.sendWithReplyMarkup(chatID, wizardPrompt(abandoned, projectListText(projects)), projectListKeyboard(projects))
}

func (b *Bot) showUpcoming(ctx context.Context, chatID, userID int64, abandoned bool) error {
	tasks, err := b.tasks.Upcoming(ctx, userID, b.opts.UpcomingDays, upcomingLimit)
	if err != nil {
		return b.sendFailure(chatID, err)
	}
	text := upcomingText(tasks, b.opts.UpcomingDays, b.tasks.Today())
	return b.sendWithReplyMarkup(chatID, wizardPrompt(abandoned, text), mainMenuKeyboard())
}

func (b *Bot) showDigest(ctx context.Context, chatID, userID int64, abandoned bool) error {
	text, err := b.digest.Summary(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, err)
	}
	if text == "" {
		text = "✅ <b>Срочных задач нет.</b>\nНи просроченных, ни горящих в ближайшие два дня."
	}
	return b.sendWithReplyMarkup(chatID, wizardPrompt(abandoned, text), mainMenuKeyboard())
}

func (b *Bot) startProjectWizard(ctx context.Context, chatID, userID int64) error {
	prev, err := b.machine.StartProject(ctx, userID)
	if err != nil {
		return b.sendFailure(chatID, err)
	}
	return b.sendWithReplyMarkup(chatID, wizardPrompt(prev != conversation.StepIdle, newProjectPrompt()), cancelKeyboard())
}

// replyWizard turns a machine verdict into the user-facing reply.
func (b *Bot) replyWizard(ctx context.Context, chatID, userID int64, res conversation.Result) error {
	switch res.Outcome {
	case conversation.OutcomeNoSession:
		return b.sendWithReplyMarkup(chatID, textFallback, mainMenuKeyboard())

	case conversation.OutcomePrompt:
		return b.sendWithReplyMarkup(chatID, deadlinePrompt(), cancelKeyboard())

	case conversation.OutcomeInvalid:
		return b.sendWithReplyMarkup(chatID, invalidAnswerText(res), cancelKeyboard())

	case conversation.OutcomeCancelled:
		return b.sendWithReplyMarkup(chatID, "❌ Действие отменено.", mainMenuKeyboard())

	case conversation.OutcomeFailed:
		return b.sendFailure(chatID, res.Err)
	}

	today := b.tasks.Today()
	switch res.Step {
	case conversation.StepProjectName:
		text := fmt.Sprintf("✅ <b>Проект '%s' успешно создан!</b>\n\nТеперь вы можете добавлять в него задачи.", escape(res.Project.Name))
		if err := b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard()); err != nil {
			return err
		}
		return b.sendProjectMenu(ctx, chatID, userID, res.Project.ID)

	case conversation.StepProjectRename:
		text := fmt.Sprintf("✅ <b>Проект переименован:</b> %s", escape(res.Project.Name))
		if err := b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard()); err != nil {
			return err
		}
		return b.sendProjectMenu(ctx, chatID, userID, res.Project.ID)

	case conversation.StepTaskDeadline:
		project := ""
		if res.Task.Project != nil {
			project = res.Task.Project.Name
		}
		text := fmt.Sprintf("✅ <b>Задача добавлена!</b>\n\n📝 %s\n📁 Проект: <i>%s</i>\n📅 Дедлайн: %s",
			escape(res.Task.Title), escape(project), service.FormatDate(res.Task.Deadline, today))
		if res.Task.Deadline != nil {
			text += "\n\n🔔 Я напомню о задаче заранее."
		}
		if err := b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard()); err != nil {
			return err
		}
		kb := taskCardKeyboard(res.Task)
		return b.sendWithReplyMarkup(chatID, taskCardText(res.Task, today), kb)

	case conversation.StepDeadlineEdit:
		text := fmt.Sprintf("✅ <b>Дедлайн обновлён:</b> %s", service.FormatDate(res.Task.Deadline, today))
		if err := b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard()); err != nil {
			return err
		}
		return b.sendWithReplyMarkup(chatID, taskCardText(res.Task, today), taskCardKeyboard(res.Task))
	}
	return b.sendWithReplyMarkup(chatID, textFallback, mainMenuKeyboard())
}

func invalidAnswerText(res conversation.Result) string {
	if res.Problem == conversation.ProblemBadDate {
		return "❌ <b>Неверный формат даты!</b>\n\n" +
			"Используйте формат <code>ДД.ММ.ГГГГ</code>, например <code>15.02.2026</code>, " +
			"или отправьте <b>нет</b>."
	}

	limit := service.MaxProjectNameLen
	if res.Step == conversation.StepTaskTitle {
		limit = service.MaxTaskTitleLen
	}
	switch res.Problem {
	case conversation.ProblemEmpty:
		return "❌ <b>Название не может быть пустым.</b>\n\nВведите название ещё раз:"
	case conversation.ProblemTooLong:
		return fmt.Sprintf("❌ <b>Название слишком длинное!</b>\n\nМаксимум %d символов. Введите покороче:", limit)
	}
	return "❌ Не удалось разобрать ответ. Попробуйте ещё раз."
}

// sendProjectMenu posts the project menu as a new message.
func (b *Bot) sendProjectMenu(ctx context.Context, chatID, userID int64, projectID uint) error {
	text, kb, err := b.projectMenu(ctx, userID, projectID)
	if err != nil {
		return b.sendFailure(chatID, err)
	}
	return b.sendWithReplyMarkup(chatID, text, kb)
}

func (b *Bot) projectMenu(ctx context.Context, userID int64, projectID uint) (string, tgbotapi.InlineKeyboardMarkup, error) {
	project, tasks, err := b.tasks.ListByProject(ctx, userID, projectID, true)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	var open []model.Task
	completed := 0
	for _, task := range tasks {
		if task.Status.Open() {
			open = append(open, task)
		} else {
			completed++
		}
	}
	return projectMenuText(project, open, completed, b.tasks.Today()), projectMenuKeyboard(project.ID), nil
}
