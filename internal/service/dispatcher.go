package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-planner/internal/model"
)

// Sender delivers a rendered message to a user.
type Sender interface {
	Deliver(ctx context.Context, userID int64, text string) error
}

// DispatcherConfig tunes the reminder loop.
type DispatcherConfig struct {
	Interval        time.Duration
	ErrorBackoff    time.Duration
	BatchSize       int
	MaxAttempts     int
	DeliveryTimeout time.Duration
}

func (c *DispatcherConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 30 * time.Second
	}
}

// SweepResult summarises one dispatcher cycle.
type SweepResult struct {
	Overdue   int64
	Sent      int
	Failed    int
	Abandoned int
	Skipped   int
}

// Dispatcher periodically reclassifies overdue tasks and delivers due reminders.
type Dispatcher struct {
	tasks  TaskStore
	notes  NotificationStore
	sender Sender
	clock  Clock
	cfg    DispatcherConfig
	log    *zap.Logger
}

func NewDispatcher(tasks TaskStore, notes NotificationStore, sender Sender, clock Clock, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{tasks: tasks, notes: notes, sender: sender, clock: clock, cfg: cfg, log: log.Named("dispatcher")}
}

// Run sweeps every Interval until ctx is cancelled. After a failed sweep it
// waits ErrorBackoff instead.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info("reminder dispatcher started", zap.Duration("interval", d.cfg.Interval))
	defer d.log.Info("reminder dispatcher stopped")

	wait := time.Duration(0)
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := d.Sweep(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error("sweep failed", zap.Error(err), zap.Duration("backoff", d.cfg.ErrorBackoff))
			wait = d.cfg.ErrorBackoff
			continue
		}
		wait = d.cfg.Interval
	}
}

// Sweep runs one cycle: overdue reclassification, then delivery of due reminders.
// Both steps are safe to repeat.
func (d *Dispatcher) Sweep(ctx context.Context) (SweepResult, error) {
	log := d.log.With(zap.String("sweep_id", uuid.NewString()))
	var res SweepResult

	overdue, err := d.tasks.MarkOverdue(ctx, d.clock.Today())
	if err != nil {
		return res, fmt.Errorf("reclassify overdue: %w", err)
	}
	res.Overdue = overdue

	now := d.clock.now()
	due, err := d.notes.ListDue(ctx, now, d.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("load due reminders: %w", err)
	}

	today := d.clock.Today()
	for _, n := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		d.deliver(ctx, log, n, today, &res)
	}

	if res.Overdue > 0 || len(due) > 0 {
		log.Info("sweep done",
			zap.Int64("overdue", res.Overdue),
			zap.Int("due", len(due)),
			zap.Int("sent", res.Sent),
			zap.Int("failed", res.Failed),
			zap.Int("abandoned", res.Abandoned),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}

func (d *Dispatcher) deliver(ctx context.Context, log *zap.Logger, n model.Notification, today time.Time, res *SweepResult) {
	log = log.With(zap.Uint("notification_id", n.ID), zap.Uint("task_id", n.TaskID), zap.Int64("user_id", n.UserID))

	if n.Task == nil || n.Task.Status == model.StatusCompleted {
		if err := d.notes.Delete(ctx, n.ID); err != nil {
			log.Warn("drop stale reminder failed", zap.Error(err))
		}
		res.Skipped++
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.DeliveryTimeout)
	err := d.sender.Deliver(sendCtx, n.UserID, ReminderText(n, today))
	cancel()

	if err != nil {
		abandon := errors.Is(err, ErrRecipientUnreachable) || n.Attempts+1 >= d.cfg.MaxAttempts
		if rerr := d.notes.RecordFailure(ctx, n.ID, err.Error(), abandon); rerr != nil {
			log.Error("record delivery failure", zap.Error(rerr))
		}
		if abandon {
			res.Abandoned++
			log.Warn("reminder abandoned", zap.Int("attempts", n.Attempts+1), zap.Error(err))
		} else {
			res.Failed++
			log.Warn("reminder delivery failed", zap.Int("attempts", n.Attempts+1), zap.Error(err))
		}
		return
	}

	marked, err := d.notes.MarkSent(ctx, n.ID, d.clock.now())
	if err != nil {
		// Delivered but not recorded; the next sweep may send it again.
		log.Error("mark reminder sent", zap.Error(err))
		res.Failed++
		return
	}
	if marked {
		res.Sent++
	}
}
