package model

import "time"

// DateOf returns the calendar date of t (in t's own location) as midnight UTC.
// Deadlines and "today" are always compared in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
