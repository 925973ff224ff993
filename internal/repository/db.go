package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"task-planner/internal/logger"
	"task-planner/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned by every write when no database is configured.
	ErrUnavailable = errors.New("persistence unavailable")
)

// Options tune the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *zap.Logger
}

// NewDB opens SQLite or PostgreSQL (chosen by DSN) and runs migrations.
func NewDB(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	gormCfg := &gorm.Config{
		Logger:  logger.Gorm(opts.Logger),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var (
		db       *gorm.DB
		err      error
		isSQLite bool
	)
	if isPostgres(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	} else {
		isSQLite = true
		if err := ensureDirForSQLite(dsn); err != nil {
			return nil, err
		}
		db, err = openSQLite(dsn, gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	if isSQLite {
		// A single connection keeps :memory: databases alive and serialises writers.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Connect retries NewDB a few times before giving up.
func Connect(ctx context.Context, dsn string, attempts int, opts Options) (*gorm.DB, error) {
	if attempts <= 0 {
		attempts = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := NewDB(dsn, opts)
		if err == nil {
			log.Info("database connected", zap.Int("attempt", i), zap.Bool("postgres", isPostgres(dsn)))
			return db, nil
		}
		lastErr = err
		log.Warn("database connect failed", zap.Int("attempt", i), zap.Error(err))
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, lastErr
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Project{}, &model.Task{}, &model.Notification{}); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func openSQLite(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		dsn += sep + "_foreign_keys=on"
	}
	return gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), cfg)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
