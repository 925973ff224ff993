package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-planner/internal/conversation"
	"task-planner/internal/logger"
	"task-planner/internal/service"
)

// API is the part of the Telegram client the bot talks through.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options tune update handling.
type Options struct {
	// QueryTimeout bounds the handling of a single update.
	QueryTimeout time.Duration
	// UpcomingDays is the window of the upcoming-tasks view.
	UpcomingDays int
	QueueSize    int
}

// ErrQueueFull is returned by Enqueue when the consumer is behind.
var ErrQueueFull = errors.New("update queue is full")

// Bot aggregates Telegram API with services.
type Bot struct {
	api      API
	projects *service.ProjectService
	tasks    *service.TaskService
	digest   *service.DigestService
	machine  *conversation.Machine
	opts     Options
	log      *zap.Logger
	updates  chan tgbotapi.Update
}

func New(api API, projects *service.ProjectService, tasks *service.TaskService, digest *service.DigestService, machine *conversation.Machine, opts Options, log *zap.Logger) *Bot {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.UpcomingDays <= 0 {
		opts.UpcomingDays = 14
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:      api,
		projects: projects,
		tasks:    tasks,
		digest:   digest,
		machine:  machine,
		opts:     opts,
		log:      log.Named("bot"),
		updates:  make(chan tgbotapi.Update, opts.QueueSize),
	}
}

// Start consumes queued updates one at a time until ctx is cancelled.
// Polling and the webhook both feed the same queue, so a user's session is
// never touched by two handlers at once.
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("update consumer started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("update consumer stopped")
			return
		case update := <-b.updates:
			b.HandleUpdate(ctx, update)
		}
	}
}

// Enqueue hands an update to the consumer without blocking.
func (b *Bot) Enqueue(update tgbotapi.Update) error {
	select {
	case b.updates <- update:
		return nil
	default:
		return ErrQueueFull
	}
}

// Poll reads updates with long polling and queues them until ctx is cancelled.
func (b *Bot) Poll(ctx context.Context, client *tgbotapi.BotAPI) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := client.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		client.StopReceivingUpdates()
	}()

	for update := range updates {
		select {
		case b.updates <- update:
		case <-ctx.Done():
			return
		}
	}
}

// HandleUpdate routes one update with its own timeout and correlation id.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.QueryTimeout)
	defer cancel()
	ctx = logger.ContextWithUpdateID(ctx, uuid.NewString())
	log := logger.FromContext(ctx, b.log).With(zap.Int("telegram_update_id", update.UpdateID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("update handler panicked", zap.Any("panic", r))
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		err = b.handleMessage(ctx, update.Message)
	}
	if err != nil {
		log.Warn("handle update", zap.Error(err))
	}
}

// Deliver sends a message outside of any update, e.g. a reminder.
// A user who blocked the bot yields service.ErrRecipientUnreachable.
func (b *Bot) Deliver(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 403 {
			return fmt.Errorf("%w: %s", service.ErrRecipientUnreachable, apiErr.Message)
		}
		return SafeError("send message", err)
	}
	return nil
}

// SendDigests pushes the daily digest to every project owner.
func (b *Bot) SendDigests(ctx context.Context) error {
	return b.digest.SendAll(ctx, b)
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, nil)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := b.api.Send(msg)
	return SafeError("send message", err)
}

// edit replaces an inline-keyboard message in place.
func (b *Bot) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		if isNotModified(err) {
			return nil
		}
		return SafeError("edit message", err)
	}
	return nil
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Debug("callback ack", zap.Error(SafeError("answer callback", err)))
	}
}

// SafeError prefixes err with op. Transport failures lose their request URL,
// which carries the bot token, and keep only the underlying cause.
func SafeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", op, urlErr.Err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "message is not modified")
}

// errorText turns a service error into a reply that leaks nothing internal.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return textNotFound
	case errors.Is(err, service.ErrUnavailable):
		return textUnavailable
	}
	return textFailed
}
