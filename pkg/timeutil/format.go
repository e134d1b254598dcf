// Package timeutil provides time conversion and formatting utilities for
// Fastline.
//
// Timestamps are stored as Unix nanoseconds (int64). This package handles
// conversion to and from time.Time and human-readable formats for the
// CLI, the TUI and reports.
package timeutil

import (
	"fmt"
	"time"
)

// FromNano converts a Unix nanosecond timestamp to time.Time.
func FromNano(ns int64) time.Time {
	return time.Unix(0, ns)
}

// ToNano converts a time.Time to Unix nanoseconds.
func ToNano(t time.Time) int64 {
	return t.UnixNano()
}

// FormatClock formats t as "15:04" in loc.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// FormatTimestamp formats t as "2006-01-02 15:04" in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02 15:04")
}

// FormatDuration formats a fasting duration.
// Examples: "45m", "16h 00m", "2d 03h 15m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %02dh %02dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatHours formats a duration as decimal hours, e.g. "16.5h".
func FormatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

// RelativeTime returns a human-readable relative time string.
// Examples: "just now", "5m ago", "1h ago", "3d ago"
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
}
