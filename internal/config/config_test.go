package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "BOT_TOKEN", "DATABASE_URL", "WEBHOOK_BASE_URL", "RENDER_EXTERNAL_HOSTNAME",
		"WEBHOOK_PATH", "WEBHOOK_SECRET", "PORT", "HTTP_HOST", "TIMEZONE", "REMINDER_INTERVAL",
		"REMINDER_HOUR", "REMINDER_BATCH_SIZE", "SESSION_TTL", "REDIS_URL", "DIGEST_TIME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiresToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_TOKEN")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Webhook.Enabled())
	assert.Equal(t, time.Minute, cfg.Reminder.Interval)
	assert.Equal(t, 20, cfg.Reminder.BatchSize)
	assert.Equal(t, 9, cfg.Reminder.Hour)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "0.0.0.0:10000", cfg.HTTP.Address())
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoad_WebhookFromRenderHostname(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "t")
	t.Setenv("RENDER_EXTERNAL_HOSTNAME", "planner.example.com")
	t.Setenv("WEBHOOK_PATH", "hook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Webhook.Enabled())
	assert.Equal(t, "https://planner.example.com/hook", cfg.Webhook.URL())
}

func TestLoad_DurationsAcceptSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "t")
	t.Setenv("REMINDER_INTERVAL", "15")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Reminder.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestLoad_RejectsBadReminderHour(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "t")
	t.Setenv("REMINDER_HOUR", "25")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Timezone(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "t")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Location.String())

	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	require.Error(t, err)
}

func TestHTTPConfig_DisabledPort(t *testing.T) {
	assert.Equal(t, "", HTTPConfig{Host: "0.0.0.0", Port: "0"}.Address())
}
