package repository

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"task-planner/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func date(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func seedTask(t *testing.T, db *gorm.DB, userID int64, deadline *time.Time) (*model.Project, *model.Task) {
	t.Helper()
	ctx := context.Background()
	project := &model.Project{UserID: userID, Name: "Дом"}
	require.NoError(t, NewProjectRepository(db).Create(ctx, project))
	task := &model.Task{ProjectID: project.ID, Title: "Купить краску", Deadline: deadline, Status: model.StatusPending}
	require.NoError(t, NewTaskRepository(db).Create(ctx, task))
	return project, task
}

func reminders(userID int64, taskID uint, at time.Time) []model.Notification {
	return []model.Notification{
		{UserID: userID, TaskID: taskID, Kind: model.KindThreeDaysBefore, ScheduledAt: at.AddDate(0, 0, -3)},
		{UserID: userID, TaskID: taskID, Kind: model.KindOneDayBefore, ScheduledAt: at.AddDate(0, 0, -1)},
		{UserID: userID, TaskID: taskID, Kind: model.KindDueToday, ScheduledAt: at},
	}
}

func TestProjectRepository_ListByUserCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	project, _ := seedTask(t, db, 42, nil)

	tasks := NewTaskRepository(db)
	done := &model.Task{ProjectID: project.ID, Title: "Готово", Status: model.StatusCompleted}
	require.NoError(t, tasks.Create(ctx, done))

	other := &model.Project{UserID: 7, Name: "Чужой"}
	require.NoError(t, NewProjectRepository(db).Create(ctx, other))

	summaries, err := NewProjectRepository(db).ListByUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Дом", summaries[0].Name)
	assert.EqualValues(t, 2, summaries[0].TotalTasks)
	assert.EqualValues(t, 1, summaries[0].OpenTasks)
	assert.EqualValues(t, 1, summaries[0].CompletedTasks())

	owners, err := NewProjectRepository(db).ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42}, owners)
}

func TestProjectRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	project, task := seedTask(t, db, 42, date(2026, 2, 15))

	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(42, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	require.NoError(t, NewProjectRepository(db).Delete(ctx, project.ID))

	_, err := NewTaskRepository(db).FindByID(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	left, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.ErrorIs(t, NewProjectRepository(db).Delete(ctx, project.ID), ErrNotFound)
}

func TestProjectRepository_Rename(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewProjectRepository(db)
	project, _ := seedTask(t, db, 1, nil)

	require.NoError(t, repo.Rename(ctx, project.ID, "Дача"))
	got, err := repo.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Дача", got.Name)

	assert.ErrorIs(t, repo.Rename(ctx, 999, "x"), ErrNotFound)
}

func TestTaskRepository_ListByProjectOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	project, undated := seedTask(t, db, 1, nil)
	repo := NewTaskRepository(db)

	later := &model.Task{ProjectID: project.ID, Title: "later", Deadline: date(2026, 3, 1), Status: model.StatusPending}
	sooner := &model.Task{ProjectID: project.ID, Title: "sooner", Deadline: date(2026, 2, 1), Status: model.StatusPending}
	done := &model.Task{ProjectID: project.ID, Title: "done", Status: model.StatusCompleted}
	for _, task := range []*model.Task{later, sooner, done} {
		require.NoError(t, repo.Create(ctx, task))
	}

	open, err := repo.ListByProject(ctx, project.ID, false)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, []uint{sooner.ID, later.ID, undated.ID}, []uint{open[0].ID, open[1].ID, open[2].ID})

	all, err := repo.ListByProject(ctx, project.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	completed, err := repo.ListCompleted(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}

func TestTaskRepository_ListDueByScopesToUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, mine := seedTask(t, db, 1, date(2026, 2, 3))
	seedTask(t, db, 2, date(2026, 2, 3))
	seedTask(t, db, 1, date(2026, 3, 30))

	due, err := NewTaskRepository(db).ListDueBy(ctx, 1, *date(2026, 2, 8), 20)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, mine.ID, due[0].ID)
	require.NotNil(t, due[0].Project)
	assert.EqualValues(t, 1, due[0].Project.UserID)
}

func TestTaskRepository_StatusAndDeadline(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	_, task := seedTask(t, db, 1, nil)

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetStatus(ctx, task.ID, model.StatusCompleted, &now))
	require.NoError(t, repo.SetDeadline(ctx, task.ID, date(2026, 2, 20)))

	got, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, "2026-02-20", got.Deadline.Format("2006-01-02"))

	require.NoError(t, repo.SetStatus(ctx, task.ID, model.StatusPending, nil))
	got, err = repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	assert.ErrorIs(t, repo.SetStatus(ctx, 999, model.StatusPending, nil), ErrNotFound)
}

func TestTaskRepository_DeleteRemovesNotifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	require.NoError(t, NewTaskRepository(db).Delete(ctx, task.ID))
	left, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.ErrorIs(t, NewTaskRepository(db).Delete(ctx, task.ID), ErrNotFound)
}

func TestTaskRepository_MarkOverdueIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)
	project, past := seedTask(t, db, 1, date(2026, 1, 30))

	todayTask := &model.Task{ProjectID: project.ID, Title: "today", Deadline: date(2026, 2, 1), Status: model.StatusInProgress}
	closed := &model.Task{ProjectID: project.ID, Title: "closed", Deadline: date(2026, 1, 1), Status: model.StatusCompleted}
	require.NoError(t, repo.Create(ctx, todayTask))
	require.NoError(t, repo.Create(ctx, closed))

	today := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	n, err := repo.MarkOverdue(ctx, today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.MarkOverdue(ctx, today)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := repo.FindByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, got.Status)

	got, err = repo.FindByID(ctx, todayTask.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	got, err = repo.FindByID(ctx, closed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestNotificationRepository_AddSkipsDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	at := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, at)))
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, at)))

	all, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNotificationRepository_ReplaceSwapsSchedule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	moved := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, notes.Replace(ctx, task.ID, []model.Notification{
		{UserID: 1, TaskID: task.ID, Kind: model.KindDueToday, ScheduledAt: moved},
	}))

	all, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].ScheduledAt.Equal(moved))
}

func TestNotificationRepository_ListDueAndMarkSentOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	now := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	due, err := notes.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, model.KindThreeDaysBefore, due[0].Kind)
	assert.Equal(t, model.KindOneDayBefore, due[1].Kind)
	require.NotNil(t, due[0].Task)
	require.NotNil(t, due[0].Task.Project)
	assert.Equal(t, "Дом", due[0].Task.Project.Name)

	ok, err := notes.MarkSent(ctx, due[0].ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = notes.MarkSent(ctx, due[0].ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	due, err = notes.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, model.KindOneDayBefore, due[0].Kind)
}

func TestNotificationRepository_RecordFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	all, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	id := all[0].ID

	require.NoError(t, notes.RecordFailure(ctx, id, "timeout", false))
	require.NoError(t, notes.RecordFailure(ctx, id, "forbidden", true))

	all, err = notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, all[0].Attempts)
	assert.True(t, all[0].Abandoned)
	assert.Equal(t, "forbidden", all[0].LastError)

	due, err := notes.ListDue(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestNotificationRepository_RecordFailureClipsByRunes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	all, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	id := all[0].ID

	// Cyrillic is two bytes per rune, so a byte cut at 500 would land mid-rune.
	reason := "\xff" + strings.Repeat("я", 251) + strings.Repeat("ж", 400)
	require.NoError(t, notes.RecordFailure(ctx, id, reason, false))

	all, err = notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, all[0].Attempts)
	assert.True(t, utf8.ValidString(all[0].LastError))
	assert.Equal(t, 500, utf8.RuneCountInString(all[0].LastError))
	assert.True(t, strings.HasPrefix(all[0].LastError, strings.Repeat("я", 251)))
}

func TestNotificationRepository_DeleteUnsentKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, task := seedTask(t, db, 1, date(2026, 2, 15))
	notes := NewNotificationRepository(db)
	require.NoError(t, notes.Add(ctx, reminders(1, task.ID, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC))))

	all, err := notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	_, err = notes.MarkSent(ctx, all[0].ID, time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, notes.DeleteUnsent(ctx, task.ID))
	all, err = notes.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Sent)
}

func TestOfflineStores(t *testing.T) {
	ctx := context.Background()

	list, err := OfflineProjects{}.ListByUser(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, list)
	assert.ErrorIs(t, OfflineProjects{}.Create(ctx, &model.Project{}), ErrUnavailable)
	assert.ErrorIs(t, OfflineTasks{}.Create(ctx, &model.Task{}), ErrUnavailable)
	_, err = OfflineNotifications{}.MarkSent(ctx, 1, time.Now())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHealth_Ping(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, NewHealth(db).Ping(context.Background()))
	assert.ErrorIs(t, NewHealth(nil).Ping(context.Background()), ErrUnavailable)
}
