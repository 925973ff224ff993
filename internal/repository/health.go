package repository

import (
	"context"

	"gorm.io/gorm"
)

// Health reports whether the database answers.
type Health struct {
	db *gorm.DB
}

func NewHealth(db *gorm.DB) *Health {
	return &Health{db: db}
}

func (h *Health) Ping(ctx context.Context) error {
	if h == nil || h.db == nil {
		return ErrUnavailable
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
