package utils

import (
	"strings"
	"time"
)

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// IsDate reports whether s is a valid YYYY-MM-DD date.
func IsDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// FormatDate formats time to YYYY-MM-DD in local timezone.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(layoutDate)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS" in local timezone.
func FormatDateTime(t time.Time) string {
	return t.In(time.Local).Format(layoutDateTime)
}

// CutoffDate returns the date `days` days before now, as YYYY-MM-DD.
// Dates strictly before the cutoff are considered older than `days`.
func CutoffDate(now time.Time, days int) string {
	return FormatDate(now.AddDate(0, 0, -days))
}

// ClockMinutes converts "7:25 AM" style clock strings into minutes after midnight.
// Unparseable input sorts last.
func ClockMinutes(clock string) int {
	t, err := time.Parse("3:04 PM", strings.ToUpper(strings.TrimSpace(clock)))
	if err != nil {
		return 24 * 60
	}
	return t.Hour()*60 + t.Minute()
}
