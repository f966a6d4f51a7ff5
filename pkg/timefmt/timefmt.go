// Package timefmt renders notification timestamps for display.
package timefmt

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	InvalidDate = "Invalid Date"
	InvalidTime = "Invalid Time"
)

// FormatDate renders a YYYY-MM-DD date as "02 January 2006".
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return InvalidDate
	}
	return t.Format("02 January 2006")
}

// FormatTime renders an HH:MM:SS time on a 12-hour clock, e.g. "2:05:09 PM".
func FormatTime(clock string) string {
	t, err := time.Parse("15:04:05", strings.TrimSpace(clock))
	if err != nil {
		return InvalidTime
	}
	return t.Format("3:04:05 PM")
}

// Relative renders t relative to now, e.g. "3 minutes ago".
func Relative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
