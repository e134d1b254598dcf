package timeutil

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{-time.Hour, "0m"},
		{45*time.Minute + 59*time.Second, "45m"},
		{16 * time.Hour, "16h 00m"},
		{18*time.Hour + 7*time.Minute, "18h 07m"},
		{51*time.Hour + 15*time.Minute, "2d 03h 15m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNanoRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 123, time.UTC)
	if got := FromNano(ToNano(now)); !got.Equal(now) {
		t.Errorf("round trip: got %v, want %v", got, now)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		if got := RelativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("RelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
