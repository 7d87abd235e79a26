package aggregate

import (
	"fmt"
	"strings"
	"time"
)

// Period scopes dashboard counters by creation date.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period; empty means today.
func ParsePeriod(val string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(val))); p {
	case "":
		return PeriodToday, nil
	case PeriodToday, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", val)
}

// Window returns the [from, now] range for the period in now's location.
// Weeks start on Monday.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodWeek:
		offset := (int(now.Weekday()) + 6) % 7
		return startOfDay.AddDate(0, 0, -offset), now
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	default:
		return startOfDay, now
	}
}

// Contains reports whether t falls in the period window ending at now.
func (p Period) Contains(t, now time.Time) bool {
	from, to := p.Window(now)
	return !t.Before(from) && !t.After(to)
}
