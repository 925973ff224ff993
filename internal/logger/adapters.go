package logger

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

type cronLogger struct {
	sugar *zap.SugaredLogger
}

// Cron adapts zap to the cron.Logger interface.
func Cron(base *zap.Logger) cron.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return cronLogger{sugar: base.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Gorm routes gorm's query logger through zap at warn level.
func Gorm(base *zap.Logger) gormlogger.Interface {
	if base == nil {
		base = zap.NewNop()
	}
	return gormlogger.New(
		zap.NewStdLog(base.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

type telegramLogger struct {
	sugar *zap.SugaredLogger
	token string
}

// Telegram adapts zap to tgbotapi's package logger. The client logs raw
// request errors whose URLs embed the bot token, so token is masked.
func Telegram(base *zap.Logger, token string) tgbotapi.BotLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return telegramLogger{sugar: base.Named("telegram").Sugar(), token: token}
}

func (l telegramLogger) Println(v ...interface{}) {
	l.sugar.Warn(l.redact(strings.TrimSuffix(fmt.Sprintln(v...), "\n")))
}

func (l telegramLogger) Printf(format string, v ...interface{}) {
	l.sugar.Warn(l.redact(fmt.Sprintf(format, v...)))
}

func (l telegramLogger) redact(msg string) string {
	if l.token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, l.token, "<redacted>")
}
