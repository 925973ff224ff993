package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"task-planner/internal/logger"
	"task-planner/internal/model"
	"task-planner/internal/service"
)

// CancelLabel is the reply-keyboard button that aborts a wizard.
const CancelLabel = "❌ Отмена"

// Projects is what the wizards need from the project service.
type Projects interface {
	Create(ctx context.Context, userID int64, name string) (*model.Project, error)
	Rename(ctx context.Context, userID int64, projectID uint, name string) (*model.Project, error)
}

// Tasks is what the wizards need from the task service.
type Tasks interface {
	Create(ctx context.Context, userID int64, input service.TaskInput) (*model.Task, error)
	UpdateDeadline(ctx context.Context, userID int64, taskID uint, deadline *time.Time) (*model.Task, error)
}

// Outcome classifies what happened to one answer.
type Outcome int

const (
	// OutcomeNoSession means the user has no wizard running.
	OutcomeNoSession Outcome = iota
	// OutcomePrompt means the answer was accepted and Step asks the next question.
	OutcomePrompt
	// OutcomeInvalid means the answer was rejected; Step is unchanged.
	OutcomeInvalid
	// OutcomeDone means the wizard committed and the session is idle again.
	OutcomeDone
	// OutcomeCancelled means the user aborted the wizard and nothing was saved.
	OutcomeCancelled
	// OutcomeFailed means the commit or the session store failed; the session is reset.
	OutcomeFailed
)

// Problem says why an answer was rejected.
type Problem int

const (
	// ProblemNone is set on every accepted answer.
	ProblemNone Problem = iota
	// ProblemEmpty is a blank answer to a required question.
	ProblemEmpty
	// ProblemTooLong is an answer over the field's rune limit.
	ProblemTooLong
	// ProblemBadDate is a deadline answer in none of the accepted date formats.
	ProblemBadDate
)

// Result is the machine's verdict on one message.
type Result struct {
	Outcome Outcome
	// Step is the step the answer was given for, or the next step after OutcomePrompt.
	Step    Step
	Problem Problem
	Project *model.Project
	Task    *model.Task
	Err     error
}

// Machine drives the per-user wizards. It writes to the store only on the
// final step of each wizard.
type Machine struct {
	store    SessionStore
	projects Projects
	tasks    Tasks
	log      *zap.Logger
}

func NewMachine(store SessionStore, projects Projects, tasks Tasks, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{store: store, projects: projects, tasks: tasks, log: log.Named("conversation")}
}

// IsCancel reports whether text aborts the running wizard.
func IsCancel(text string) bool {
	text = strings.TrimSpace(text)
	if text == CancelLabel {
		return true
	}
	switch strings.ToLower(text) {
	case "отмена", "cancel":
		return true
	}
	return false
}

// Current returns the user's session, idle if none.
func (m *Machine) Current(ctx context.Context, userID int64) (Session, error) {
	return m.store.Load(ctx, userID)
}

// StartProject begins the new-project wizard. Any running wizard is
// abandoned; its step is returned (StepIdle if there was none).
func (m *Machine) StartProject(ctx context.Context, userID int64) (Step, error) {
	return m.begin(ctx, userID, Session{Step: StepProjectName})
}

// StartTask begins the add-task wizard for a project the caller already owns.
func (m *Machine) StartTask(ctx context.Context, userID int64, project *model.Project) (Step, error) {
	return m.begin(ctx, userID, Session{Step: StepTaskTitle, ProjectID: project.ID, ProjectName: project.Name})
}

func (m *Machine) StartRename(ctx context.Context, userID int64, project *model.Project) (Step, error) {
	return m.begin(ctx, userID, Session{Step: StepProjectRename, ProjectID: project.ID, ProjectName: project.Name})
}

func (m *Machine) StartDeadlineEdit(ctx context.Context, userID int64, task *model.Task) (Step, error) {
	return m.begin(ctx, userID, Session{Step: StepDeadlineEdit, ProjectID: task.ProjectID, TaskID: task.ID, Title: task.Title})
}

func (m *Machine) begin(ctx context.Context, userID int64, next Session) (Step, error) {
	prev, err := m.store.Load(ctx, userID)
	if err != nil {
		return StepIdle, err
	}
	if err := m.store.Save(ctx, userID, next); err != nil {
		return StepIdle, err
	}
	if prev.Active() {
		logger.FromContext(ctx, m.log).Info("wizard abandoned",
			zap.Int64("user_id", userID),
			zap.String("abandoned", string(prev.Step)),
			zap.String("started", string(next.Step)),
		)
	}
	return prev.Step, nil
}

// Cancel resets the user to idle and returns the step that was running.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Step, error) {
	prev, err := m.store.Load(ctx, userID)
	if err != nil {
		return StepIdle, err
	}
	if err := m.store.Clear(ctx, userID); err != nil {
		return prev.Step, err
	}
	return prev.Step, nil
}

// Handle feeds one free-text message into the user's wizard.
func (m *Machine) Handle(ctx context.Context, userID int64, text string) Result {
	s, err := m.store.Load(ctx, userID)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if !s.Active() {
		return Result{Outcome: OutcomeNoSession}
	}
	if IsCancel(text) {
		if err := m.store.Clear(ctx, userID); err != nil {
			return Result{Outcome: OutcomeFailed, Step: s.Step, Err: err}
		}
		return Result{Outcome: OutcomeCancelled, Step: s.Step}
	}

	switch s.Step {
	case StepProjectName:
		name, err := service.ValidateName(text)
		if err != nil {
			return m.reject(ctx, userID, s, problemOf(err))
		}
		project, err := m.projects.Create(ctx, userID, name)
		if err != nil {
			return m.fail(ctx, userID, s, err)
		}
		return m.done(ctx, userID, s, Result{Project: project})

	case StepTaskTitle:
		title, err := service.ValidateTitle(text)
		if err != nil {
			return m.reject(ctx, userID, s, problemOf(err))
		}
		s.Title = title
		s.Step = StepTaskDeadline
		if err := m.store.Save(ctx, userID, s); err != nil {
			return m.fail(ctx, userID, s, err)
		}
		return Result{Outcome: OutcomePrompt, Step: StepTaskDeadline}

	case StepTaskDeadline:
		deadline, err := ParseDeadlineAnswer(text)
		if err != nil {
			return m.reject(ctx, userID, s, ProblemBadDate)
		}
		task, err := m.tasks.Create(ctx, userID, service.TaskInput{ProjectID: s.ProjectID, Title: s.Title, Deadline: deadline})
		if err != nil {
			return m.fail(ctx, userID, s, err)
		}
		return m.done(ctx, userID, s, Result{Task: task, Project: task.Project})

	case StepProjectRename:
		name, err := service.ValidateName(text)
		if err != nil {
			return m.reject(ctx, userID, s, problemOf(err))
		}
		project, err := m.projects.Rename(ctx, userID, s.ProjectID, name)
		if err != nil {
			return m.fail(ctx, userID, s, err)
		}
		return m.done(ctx, userID, s, Result{Project: project})

	case StepDeadlineEdit:
		deadline, err := ParseDeadlineAnswer(text)
		if err != nil {
			return m.reject(ctx, userID, s, ProblemBadDate)
		}
		task, err := m.tasks.UpdateDeadline(ctx, userID, s.TaskID, deadline)
		if err != nil {
			return m.fail(ctx, userID, s, err)
		}
		return m.done(ctx, userID, s, Result{Task: task, Project: task.Project})
	}

	// Unknown step, e.g. a session written by a newer build.
	_ = m.store.Clear(ctx, userID)
	return Result{Outcome: OutcomeNoSession}
}

// reject keeps the step as is but refreshes the idle timer.
func (m *Machine) reject(ctx context.Context, userID int64, s Session, p Problem) Result {
	if err := m.store.Save(ctx, userID, s); err != nil {
		return m.fail(ctx, userID, s, err)
	}
	return Result{Outcome: OutcomeInvalid, Step: s.Step, Problem: p}
}

func (m *Machine) done(ctx context.Context, userID int64, s Session, res Result) Result {
	if err := m.store.Clear(ctx, userID); err != nil {
		logger.FromContext(ctx, m.log).Warn("clear session failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	res.Outcome = OutcomeDone
	res.Step = s.Step
	return res
}

func (m *Machine) fail(ctx context.Context, userID int64, s Session, err error) Result {
	logger.FromContext(ctx, m.log).Warn("wizard failed",
		zap.Int64("user_id", userID),
		zap.String("step", string(s.Step)),
		zap.Error(err),
	)
	if cerr := m.store.Clear(ctx, userID); cerr != nil {
		logger.FromContext(ctx, m.log).Warn("clear session failed", zap.Int64("user_id", userID), zap.Error(cerr))
	}
	return Result{Outcome: OutcomeFailed, Step: s.Step, Err: err}
}

func problemOf(err error) Problem {
	switch {
	case errors.Is(err, service.ErrEmptyName), errors.Is(err, service.ErrEmptyTitle):
		return ProblemEmpty
	case errors.Is(err, service.ErrNameTooLong), errors.Is(err, service.ErrTitleTooLong):
		return ProblemTooLong
	}
	return ProblemNone
}
