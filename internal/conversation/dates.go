package conversation

import (
	"errors"
	"strings"
	"time"

	"task-planner/internal/model"
)

// ErrBadDate is returned when a deadline answer matches none of the accepted formats.
var ErrBadDate = errors.New("unrecognised date")

// deadlineLayouts are tried in order; day-first forms win over year-first ones.
var deadlineLayouts = []string{
	"2.1.2006", "2.1.06",
	"2/1/2006", "2/1/06",
	"2-1-2006", "2-1-06",
	"2006.1.2", "2006/1/2", "2006-1-2",
}

var noDeadlineWords = map[string]struct{}{
	"no": {}, "none": {}, "skip": {}, "null": {}, "-": {},
	"нет": {}, "без срока": {}, "пропустить": {},
}

// IsNoDeadline reports whether the answer means "no deadline".
func IsNoDeadline(text string) bool {
	_, ok := noDeadlineWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// ParseDeadline reads a calendar date in one of the accepted day-first or
// year-first formats. The result is midnight UTC of that date.
func ParseDeadline(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return model.DateOf(t), nil
		}
	}
	return time.Time{}, ErrBadDate
}

// ParseDeadlineAnswer handles a full wizard answer: nil for "no deadline",
// the parsed date otherwise.
func ParseDeadlineAnswer(text string) (*time.Time, error) {
	if IsNoDeadline(text) {
		return nil, nil
	}
	d, err := ParseDeadline(text)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
