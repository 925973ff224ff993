package service

import (
	"errors"

	"task-planner/internal/repository"
)

var (
	// ErrNotFound covers both a missing record and one owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means no database is configured or reachable.
	ErrUnavailable = repository.ErrUnavailable

	ErrEmptyName    = errors.New("project name is empty")
	ErrNameTooLong  = errors.New("project name is too long")
	ErrEmptyTitle   = errors.New("task title is empty")
	ErrTitleTooLong = errors.New("task title is too long")

	// ErrRecipientUnreachable marks a delivery failure that retrying cannot fix,
	// e.g. the user blocked the bot.
	ErrRecipientUnreachable = errors.New("recipient unreachable")
)

const (
	MaxProjectNameLen = 255
	MaxTaskTitleLen   = 500
)

// notFound maps the repository's not-found error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
