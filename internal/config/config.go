package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken   string
	TelegramTimeout time.Duration
	Location        *time.Location
	QueryTimeout    time.Duration
	UpcomingDays    int
	Database        DatabaseConfig
	Webhook         WebhookConfig
	HTTP            HTTPConfig
	Reminder        ReminderConfig
	Session         SessionConfig
	Logger          LoggerConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
}

// Enabled reports whether persistence is configured at all.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

type WebhookConfig struct {
	BaseURL string
	Path    string
	Secret  string
}

// Enabled reports whether updates arrive via webhook instead of long polling.
func (c WebhookConfig) Enabled() bool {
	return c.BaseURL != ""
}

// URL is the address registered with Telegram.
func (c WebhookConfig) URL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.Path
}

type HTTPConfig struct {
	Host string
	Port string
}

// Address returns the listen address, or "" when the server is disabled.
func (c HTTPConfig) Address() string {
	if c.Port == "" || c.Port == "0" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type ReminderConfig struct {
	Interval     time.Duration
	ErrorBackoff time.Duration
	BatchSize    int
	MaxAttempts  int
	Hour         int
	DigestTime   string
}

type SessionConfig struct {
	TTL      time.Duration
	RedisURL string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env) with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		TelegramToken:   firstNonEmpty(os.Getenv("TELEGRAM_TOKEN"), os.Getenv("BOT_TOKEN")),
		TelegramTimeout: getDuration("TELEGRAM_TIMEOUT", 30*time.Second),
		QueryTimeout:    getDuration("QUERY_TIMEOUT", 30*time.Second),
		UpcomingDays:    getInt("UPCOMING_DAYS", 14),
		Database: DatabaseConfig{
			URL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			ConnectAttempts: getInt("DB_CONNECT_ATTEMPTS", 3),
		},
		Webhook: WebhookConfig{
			BaseURL: webhookBaseURL(),
			Path:    getString("WEBHOOK_PATH", "/webhook"),
			Secret:  strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
		},
		HTTP: HTTPConfig{
			Host: getString("HTTP_HOST", "0.0.0.0"),
			Port: getString("PORT", "10000"),
		},
		Reminder: ReminderConfig{
			Interval:     getDuration("REMINDER_INTERVAL", time.Minute),
			ErrorBackoff: getDuration("REMINDER_ERROR_BACKOFF", 5*time.Minute),
			BatchSize:    getInt("REMINDER_BATCH_SIZE", 20),
			MaxAttempts:  getInt("REMINDER_MAX_ATTEMPTS", 5),
			Hour:         getInt("REMINDER_HOUR", 9),
			DigestTime:   strings.TrimSpace(os.Getenv("DIGEST_TIME")),
		},
		Session: SessionConfig{
			TTL:      getDuration("SESSION_TTL", 30*time.Minute),
			RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		cfg.Webhook.Path = "/" + cfg.Webhook.Path
	}

	loc, err := loadLocation(strings.TrimSpace(os.Getenv("TIMEZONE")))
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	if cfg.Reminder.Hour < 0 || cfg.Reminder.Hour > 23 {
		return cfg, fmt.Errorf("REMINDER_HOUR must be within 0..23, got %d", cfg.Reminder.Hour)
	}
	if cfg.Reminder.Interval <= 0 {
		return cfg, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	if cfg.Reminder.BatchSize <= 0 {
		cfg.Reminder.BatchSize = 20
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func webhookBaseURL() string {
	if base := strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")); base != "" {
		return base
	}
	if host := strings.TrimSpace(os.Getenv("RENDER_EXTERNAL_HOSTNAME")); host != "" {
		return "https://" + host
	}
	return ""
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
