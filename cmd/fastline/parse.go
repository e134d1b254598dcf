package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/spf13/cobra"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// parseWhen reads a --at flag. Empty means now; a bare clock time means
// that time on the day of now in loc.
func parseWhen(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}
	if clock, err := time.Parse("15:04", s); err == nil {
		today := timeline.DayOf(now, loc)
		return time.Date(today.Year, today.Month, today.Day, clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM, YYYY-MM-DD HH:MM or RFC3339)", s)
}

// parseGoal accepts a Go duration ("16h", "18h30m") or a bare number of hours.
func parseGoal(s string) (time.Duration, error) {
	if h, err := strconv.ParseFloat(s, 64); err == nil {
		s = fmt.Sprintf("%gh", h)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid goal %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid goal %q: must not be negative", s)
	}
	return d, nil
}

// parseDay reads an optional YYYY-MM-DD argument, defaulting to today.
func parseDay(args []string, now time.Time, loc *time.Location) (timeline.Day, error) {
	if len(args) == 0 || args[0] == "today" {
		return timeline.DayOf(now, loc), nil
	}
	if args[0] == "yesterday" {
		return timeline.DayOf(now, loc).AddDays(-1), nil
	}
	return timeline.ParseDay(args[0])
}

// parseMonth reads an optional YYYY-MM argument, defaulting to this month.
func parseMonth(args []string, now time.Time, loc *time.Location) (int, time.Month, error) {
	if len(args) == 0 {
		today := timeline.DayOf(now, loc)
		return today.Year, today.Month, nil
	}
	t, err := time.Parse("2006-01", args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (want YYYY-MM)", args[0])
	}
	return t.Year(), t.Month(), nil
}
