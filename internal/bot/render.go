package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"task-planner/internal/model"
	"task-planner/internal/service"
)

const (
	textNotFound    = "❌ Не найдено."
	textUnavailable = "⚠️ <b>Хранилище недоступно.</b>\nПопробуйте позже."
	textFailed      = "❌ <b>Произошла ошибка.</b>\nПопробуйте позже."
	textFallback    = "🤖 <b>Используйте кнопки ниже для навигации:</b>"
	textAbandoned   = "⚠️ Предыдущий ввод отменён.\n\n"
)

// Telegram rejects messages over 4096 characters, so list views clip titles
// and names and show a bounded number of rows.
const (
	listTitleLen   = 60
	listNameLen    = 40
	projectsShown  = 20
	completedShown = 15
	cardTextLen    = 2000
)

func escape(s string) string {
	return html.EscapeString(s)
}

func welcomeText() string {
	return "👋 <b>Добро пожаловать в Task Planner Bot!</b>\n\n" +
		"Я помогу вам организовать ваши проекты и задачи.\n\n" +
		"<b>Основные возможности:</b>\n" +
		"• 📂 Создание и управление проектами\n" +
		"• 📝 Добавление задач с дедлайнами\n" +
		"• ✅ Отслеживание выполнения задач\n" +
		"• 🔔 Напоминания за 3 дня, за день и в день дедлайна\n" +
		"• 📅 Просмотр предстоящих задач\n\n" +
		"Используйте кнопки ниже для навигации."
}

func helpText() string {
	return "🤖 <b>Task Planner Bot: помощь</b>\n\n" +
		"<b>Основные команды:</b>\n" +
		"/start - Начать работу с ботом\n" +
		"/help - Показать это сообщение\n" +
		"/projects - Показать все проекты\n" +
		"/tasks - Показать ближайшие задачи\n" +
		"/newproject - Создать проект\n" +
		"/digest - Сводка по срочным задачам\n" +
		"/cancel - Отменить текущий ввод\n\n" +
		"<b>Управление задачами:</b>\n" +
		"• 📝 У каждой задачи есть название и дедлайн\n" +
		"• ✅ Отмечайте выполненные задачи\n" +
		"• 🔔 Напоминания приходят автоматически\n\n" +
		"<b>Формат даты:</b>\n" +
		"<code>ДД.ММ.ГГГГ</code> (например, 15.02.2026), а также " +
		"<code>15/02/2026</code>, <code>15-02-26</code> или <code>2026-02-15</code>.\n" +
		"Отправьте <b>нет</b>, если дедлайн не нужен."
}

func projectStats(total, open int64) string {
	return fmt.Sprintf("📊 Задачи: %d всего\n   • 🟢 Активных: %d\n   • ✅ Выполнено: %d", total, open, total-open)
}

func projectListText(projects []model.ProjectSummary) string {
	if len(projects) == 0 {
		return "📭 <b>У вас пока нет проектов.</b>\n\n" +
			"Создайте первый проект, нажав кнопку <b>" + menuLabelNewProject + "</b>"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📂 <b>Ваши проекты</b> (всего: %d):\n\n", len(projects)))
	for i, p := range projects {
		if i == projectsShown {
			sb.WriteString(moreText(len(projects) - projectsShown))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>\n", i+1, escape(service.Truncate(p.Name, listNameLen))))
		sb.WriteString(fmt.Sprintf("   📅 Создан: %s\n", p.CreatedAt.Format("02.01.2006")))
		sb.WriteString("   " + projectStats(p.TotalTasks, p.OpenTasks) + "\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// projectMenuText shows counters and the three nearest deadlines; open must be
// sorted by deadline.
func projectMenuText(project *model.Project, open []model.Task, completed int, today time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📁 <b>Проект: %s</b>\n\n", escape(service.Truncate(project.Name, listNameLen))))
	sb.WriteString("📊 <b>Статистика:</b>\n")
	sb.WriteString(fmt.Sprintf("• Всего задач: %d\n", len(open)+completed))
	sb.WriteString(fmt.Sprintf("• Активных: %d\n", len(open)))
	sb.WriteString(fmt.Sprintf("• Выполнено: %d\n\n", completed))

	shown := 0
	for _, task := range open {
		if task.Deadline == nil {
			continue
		}
		if shown == 0 {
			sb.WriteString("📅 <b>Ближайшие задачи:</b>\n")
		}
		shown++
		sb.WriteString(fmt.Sprintf("%d. %s - %s\n", shown, escape(service.Truncate(task.Title, 30)), service.FormatDate(task.Deadline, today)))
		if shown == 3 {
			break
		}
	}
	if shown > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString("Выберите действие:")
	return sb.String()
}

func taskListText(project *model.Project, page []model.Task, offset, total, pageNo int, today time.Time) string {
	if total == 0 {
		return fmt.Sprintf("📭 <b>В проекте '%s' нет активных задач.</b>\n\n"+
			"Добавьте первую задачу или просмотрите выполненные задачи.", escape(service.Truncate(project.Name, listNameLen)))
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 <b>Активные задачи проекта '%s'</b>%s:\n\n", escape(service.Truncate(project.Name, listNameLen)), pageLabel(pageNo, total)))
	for i, task := range page {
		sb.WriteString(fmt.Sprintf("%d. %s <b>%s</b>\n   📅 %s\n\n",
			offset+i+1, service.StatusIcon(task.Status), escape(service.Truncate(task.Title, listTitleLen)), service.FormatDate(task.Deadline, today)))
	}
	return strings.TrimSpace(sb.String())
}

// completedText shows the first completedShown tasks; callers pass the most
// recently completed first.
func completedText(project *model.Project, tasks []model.Task, today time.Time) string {
	name := escape(service.Truncate(project.Name, listNameLen))
	if len(tasks) == 0 {
		return fmt.Sprintf("✅ <b>В проекте '%s' нет выполненных задач.</b>", name)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ <b>Выполненные задачи проекта '%s':</b>\n\n", name))
	for i, task := range tasks {
		if i == completedShown {
			sb.WriteString(moreText(len(tasks) - completedShown))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. ✅ <b>%s</b>\n", i+1, escape(service.Truncate(task.Title, listTitleLen))))
		sb.WriteString(fmt.Sprintf("   📅 Дедлайн был: %s\n", service.FormatDate(task.Deadline, today)))
		if task.CompletedAt != nil {
			sb.WriteString(fmt.Sprintf("   🏁 Выполнена: %s\n", task.CompletedAt.Format("02.01.2006")))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

func taskCardText(task *model.Task, today time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 <b>%s</b>\n\n", escape(task.Title)))
	if task.Project != nil {
		sb.WriteString(fmt.Sprintf("📁 Проект: <i>%s</i>\n", escape(task.Project.Name)))
	}
	sb.WriteString(fmt.Sprintf("%s Статус: %s\n", service.StatusIcon(task.Status), service.StatusLabel(task.Status)))
	sb.WriteString(fmt.Sprintf("📅 Дедлайн: %s\n", service.FormatDate(task.Deadline, today)))
	sb.WriteString(fmt.Sprintf("🕓 Создана: %s\n", task.CreatedAt.Format("02.01.2006")))
	if desc := strings.TrimSpace(task.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", escape(service.Truncate(desc, cardTextLen))))
	}
	return strings.TrimSpace(sb.String())
}

func upcomingText(tasks []model.Task, days int, today time.Time) string {
	if len(tasks) == 0 {
		return fmt.Sprintf("📭 <b>У вас нет предстоящих задач на ближайшие %d дн.</b>\n\n"+
			"Создайте новые задачи в своих проектах.", days)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 <b>Ближайшие задачи (%d дн.):</b>\n", days))

	var current time.Time
	for _, task := range tasks {
		d := model.DateOf(*task.Deadline)
		if !d.Equal(current) {
			current = d
			label := service.FormatDate(&d, today)
			if d.Before(today) {
				label = "⚠️ Просрочено: " + d.Format("02.01.2006")
			}
			sb.WriteString(fmt.Sprintf("\n<b>%s:</b>\n", label))
		}
		project := ""
		if task.Project != nil {
			project = service.Truncate(task.Project.Name, 20)
		}
		sb.WriteString(fmt.Sprintf("  • %s\n    📁 Проект: <i>%s</i>\n", escape(service.Truncate(task.Title, listTitleLen)), escape(project)))
	}
	return strings.TrimSpace(sb.String())
}

func moreText(n int) string {
	return fmt.Sprintf("<i>...и ещё %d</i>", n)
}

func wizardPrompt(abandoned bool, text string) string {
	if abandoned {
		return textAbandoned + text
	}
	return text
}

func newProjectPrompt() string {
	return "📝 <b>Создание нового проекта</b>\n\n" +
		"Введите название проекта:\n\n" +
		"<i>Примеры:</i>\n" +
		"<code>Разработка веб-сайта</code>\n" +
		"<code>Личные цели на год</code>\n" +
		"<code>Рабочие задачи</code>"
}

func newTaskPrompt(project *model.Project) string {
	return fmt.Sprintf("📝 <b>Добавление задачи в проект '%s'</b>\n\n", escape(project.Name)) +
		"Введите название задачи:\n\n" +
		"<i>Примеры:</i>\n" +
		"<code>Изучить документацию</code>\n" +
		"<code>Написать код модуля</code>\n" +
		"<code>Подготовить отчет</code>"
}

func deadlinePrompt() string {
	return "📅 <b>Установите дедлайн для задачи:</b>\n\n" +
		"Введите дату в формате <code>ДД.ММ.ГГГГ</code>\n" +
		"<i>Например:</i> <code>15.02.2026</code>\n\n" +
		"Или отправьте <b>нет</b>, если дедлайн не нужен.\n\n" +
		"<i>Другие форматы дат:</i>\n" +
		"<code>15/02/2026</code> или <code>15-02-2026</code>"
}

func renamePrompt(project *model.Project) string {
	return fmt.Sprintf("✏️ <b>Переименование проекта</b>\n\nТекущее название: <code>%s</code>\n\nВведите новое название:", escape(project.Name))
}

func deadlineEditPrompt(task *model.Task, today time.Time) string {
	return fmt.Sprintf("📅 <b>Новый дедлайн для задачи</b> <code>%s</code>\n\nСейчас: %s\n\n",
		escape(task.Title), service.FormatDate(task.Deadline, today)) +
		"Введите дату в формате <code>ДД.ММ.ГГГГ</code> или отправьте <b>нет</b>, чтобы убрать дедлайн."
}
