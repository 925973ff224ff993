package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"task-planner/internal/bot"
	"task-planner/internal/config"
	"task-planner/internal/conversation"
	"task-planner/internal/logger"
	"task-planner/internal/repository"
	"task-planner/internal/server"
	"task-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.Logger.Level, Encoding: cfg.Logger.Encoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("task planner stopped with error", zap.Error(err))
	}
	zapLogger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) error {
	var (
		projectStore service.ProjectStore      = repository.OfflineProjects{}
		taskStore    service.TaskStore         = repository.OfflineTasks{}
		noteStore    service.NotificationStore = repository.OfflineNotifications{}
		db           *gorm.DB
	)

	if cfg.Database.Enabled() {
		var err error
		db, err = repository.Connect(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, repository.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			Logger:          zapLogger,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			zapLogger.Error("database unreachable, running without persistence", zap.Error(err))
		} else {
			defer func() {
				if err := repository.Close(db); err != nil {
					zapLogger.Warn("close database", zap.Error(err))
				}
			}()
			projectStore = repository.NewProjectRepository(db)
			taskStore = repository.NewTaskRepository(db)
			noteStore = repository.NewNotificationRepository(db)
		}
	} else {
		zapLogger.Warn("DATABASE_URL is not set, running without persistence")
	}

	pinger := storeHealth(cfg.Database.Enabled(), db)

	clock := service.Clock{Location: cfg.Location, ReminderHour: cfg.Reminder.Hour}
	projectSvc := service.NewProjectService(projectStore)
	taskSvc := service.NewTaskService(projectStore, taskStore, noteStore, clock, zapLogger)
	digestSvc := service.NewDigestService(projectStore, taskStore, clock, zapLogger)

	scheduler := service.NewSchedulerService(cfg.Location, zapLogger)

	sessions, err := sessionStore(ctx, cfg, scheduler, zapLogger)
	if err != nil {
		return err
	}
	machine := conversation.NewMachine(sessions, projectSvc, taskSvc, zapLogger)

	if err := tgbotapi.SetLogger(logger.Telegram(zapLogger, cfg.TelegramToken)); err != nil {
		return fmt.Errorf("telegram logger: %w", err)
	}
	client, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint, &http.Client{Timeout: cfg.TelegramTimeout})
	if err != nil {
		return bot.SafeError("telegram", err)
	}
	zapLogger.Info("authorized on telegram", zap.String("account", client.Self.UserName))

	telegramBot := bot.New(client, projectSvc, taskSvc, digestSvc, machine, bot.Options{
		QueryTimeout: cfg.QueryTimeout,
		UpcomingDays: cfg.UpcomingDays,
	}, zapLogger)
	go telegramBot.Start(ctx)

	if db != nil {
		dispatcher := service.NewDispatcher(taskStore, noteStore, telegramBot, clock, service.DispatcherConfig{
			Interval:        cfg.Reminder.Interval,
			ErrorBackoff:    cfg.Reminder.ErrorBackoff,
			BatchSize:       cfg.Reminder.BatchSize,
			MaxAttempts:     cfg.Reminder.MaxAttempts,
			DeliveryTimeout: cfg.TelegramTimeout,
		}, zapLogger)
		go dispatcher.Run(ctx)

		if cfg.Reminder.DigestTime != "" {
			if _, err := scheduler.ScheduleDaily(cfg.Reminder.DigestTime, func() {
				jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				defer cancel()
				if err := telegramBot.SendDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
					zapLogger.Warn("daily digest", zap.Error(err))
				}
			}); err != nil {
				return fmt.Errorf("schedule digest: %w", err)
			}
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	var intake server.Intake
	if cfg.Webhook.Enabled() {
		intake = telegramBot
	}

	serverErr := make(chan error, 1)
	var httpServer *server.Server
	if addr := cfg.HTTP.Address(); addr != "" {
		httpServer = server.New(server.Config{
			Address:       addr,
			WebhookPath:   cfg.Webhook.Path,
			WebhookSecret: cfg.Webhook.Secret,
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   time.Minute,
		}, pinger, intake, zapLogger)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil {
				serverErr <- err
			}
		}()
	} else if cfg.Webhook.Enabled() {
		return errors.New("webhook mode needs PORT")
	}

	if cfg.Webhook.Enabled() {
		if _, err := bot.RegisterWebhook(client, cfg.Webhook.URL(), cfg.Webhook.Secret, zapLogger); err != nil {
			return err
		}
		defer func() {
			if err := bot.DeleteWebhook(client); err != nil {
				zapLogger.Warn("delete webhook", zap.Error(err))
			}
		}()
	} else {
		// getUpdates is refused while a webhook is set.
		if err := bot.DeleteWebhook(client); err != nil {
			zapLogger.Warn("delete webhook before polling", zap.Error(err))
		}
		go telegramBot.Poll(ctx, client)
	}

	zapLogger.Info("task planner bot started", zap.Bool("webhook", cfg.Webhook.Enabled()), zap.Bool("persistence", db != nil))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(); err != nil {
			zapLogger.Warn("http shutdown", zap.Error(err))
		}
	}
	return runErr
}

// storeHealth is nil when no database is configured. A configured database
// that failed to connect keeps reporting as down.
func storeHealth(configured bool, db *gorm.DB) server.Pinger {
	if !configured {
		return nil
	}
	return repository.NewHealth(db)
}

// sessionStore picks Redis when configured and reachable, otherwise an
// in-memory store pruned by the scheduler.
func sessionStore(ctx context.Context, cfg config.Config, scheduler *service.SchedulerService, zapLogger *zap.Logger) (conversation.SessionStore, error) {
	if cfg.Session.RedisURL != "" {
		client, err := conversation.NewRedisClient(ctx, cfg.Session.RedisURL)
		if err == nil {
			zapLogger.Info("sessions stored in redis")
			return conversation.NewRedisStore(client, cfg.Session.TTL), nil
		}
		zapLogger.Warn("redis unreachable, keeping sessions in memory", zap.Error(err))
	}

	mem := conversation.NewMemoryStore(cfg.Session.TTL, nil)
	if _, err := scheduler.ScheduleInterval(time.Minute, func() {
		if n := mem.Prune(); n > 0 {
			zapLogger.Debug("expired sessions pruned", zap.Int("count", n))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule session pruning: %w", err)
	}
	return mem, nil
}
