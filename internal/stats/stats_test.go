package stats

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zone = time.FixedZone("UTC-5", -5*60*60)

func local(day, hh, mm int) time.Time {
	return time.Date(2024, time.June, day, hh, mm, 0, 0, zone)
}

func closed(id string, start, end time.Time, goal int) *database.Fast {
	return &database.Fast{ID: id, StartTime: start, EndTime: &end, GoalMinutes: goal}
}

func newStore(t *testing.T, fasts ...*database.Fast) *database.DBService {
	t.Helper()
	svc, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	if len(fasts) > 0 {
		require.NoError(t, svc.UpsertFasts(context.Background(), fasts))
	}
	return svc
}

func TestLinearRegression(t *testing.T) {
	// Perfect linear: y = 2x + 1
	points := []dataPoint{
		{0, 1}, {1, 3}, {2, 5}, {3, 7}, {4, 9},
	}

	slope, intercept, rSquared := linearRegression(points)

	if math.Abs(slope-2.0) > 0.001 {
		t.Errorf("expected slope=2.0, got %.3f", slope)
	}
	if math.Abs(intercept-1.0) > 0.001 {
		t.Errorf("expected intercept=1.0, got %.3f", intercept)
	}
	if math.Abs(rSquared-1.0) > 0.001 {
		t.Errorf("expected R²=1.0, got %.3f", rSquared)
	}
}

func TestLinearRegressionNoisy(t *testing.T) {
	points := []dataPoint{
		{0, 1.1}, {1, 2.9}, {2, 5.2}, {3, 6.8}, {4, 9.1},
	}

	slope, _, rSquared := linearRegression(points)

	if slope < 1.5 || slope > 2.5 {
		t.Errorf("expected slope ≈ 2.0, got %.3f", slope)
	}
	if rSquared < 0.95 {
		t.Errorf("expected R² > 0.95, got %.3f", rSquared)
	}
}

func TestLinearRegressionConstant(t *testing.T) {
	points := []dataPoint{
		{0, 5}, {1, 5}, {2, 5}, {3, 5},
	}

	slope, intercept, rSquared := linearRegression(points)

	if math.Abs(slope) > 0.001 {
		t.Errorf("expected slope=0, got %.3f", slope)
	}
	if math.Abs(intercept-5.0) > 0.001 {
		t.Errorf("expected intercept=5.0, got %.3f", intercept)
	}
	if rSquared < 0.99 {
		t.Errorf("expected R²=1.0, got %.3f", rSquared)
	}
}

func TestLinearRegressionSinglePoint(t *testing.T) {
	slope, _, _ := linearRegression([]dataPoint{{0, 5}})
	if slope != 0 {
		t.Errorf("expected slope=0 for single point, got %.3f", slope)
	}
}

func TestStreaks(t *testing.T) {
	d := func(n int) timeline.Day { return timeline.Day{Year: 2024, Month: time.June, Day: n} }

	tests := []struct {
		name            string
		days            []timeline.Day
		today           timeline.Day
		current, longst int
	}{
		{"none", nil, d(10), 0, 0},
		{"ends today", []timeline.Day{d(8), d(9), d(10)}, d(10), 3, 3},
		{"ends yesterday", []timeline.Day{d(8), d(9)}, d(10), 2, 2},
		{"broken", []timeline.Day{d(1), d(2), d(3), d(4), d(7)}, d(10), 0, 4},
		{"duplicates", []timeline.Day{d(9), d(9), d(10)}, d(10), 2, 2},
		{"across month", []timeline.Day{{Year: 2024, Month: time.May, Day: 31}, d(1)}, d(1), 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, longest := streaks(tt.days, tt.today)
			assert.Equal(t, tt.current, cur, "current")
			assert.Equal(t, tt.longst, longest, "longest")
		})
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	store := newStore(t,
		closed("a", local(1, 20, 0), local(2, 12, 0), 16*60), // 16h, goal met
		closed("b", local(2, 20, 0), local(3, 10, 0), 16*60), // 14h, goal missed
		closed("c", local(3, 19, 0), local(4, 13, 0), 0),     // 18h, no goal
		&database.Fast{ID: "d", StartTime: local(4, 20, 0), GoalMinutes: 18 * 60},
	)

	now := local(5, 5, 0) // 9h into "d"
	s, err := NewAnalyzer(store, zone).Summarize(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 4, s.TotalFasts)
	assert.Equal(t, 3, s.CompletedFasts)
	assert.InDelta(t, 48.0, s.TotalHours, 0.001)
	assert.InDelta(t, 16.0, s.AverageHours, 0.001)
	assert.InDelta(t, 18.0, s.LongestHours, 0.001)
	assert.InDelta(t, 14.0, s.ShortestHours, 0.001)
	assert.Equal(t, 2, s.GoalsSet)
	assert.Equal(t, 1, s.GoalsReached)
	assert.InDelta(t, 50.0, s.GoalSuccessRate, 0.001)
	assert.Equal(t, 3, s.CurrentStreak) // June 2, 3, 4; today (5th) still pending
	assert.Equal(t, 3, s.LongestStreak)

	require.NotNil(t, s.Active)
	assert.Equal(t, "d", s.Active.ID)
	assert.InDelta(t, 9.0, s.Active.ElapsedHours, 0.001)
	assert.InDelta(t, 0.5, s.Active.Progress, 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := NewAnalyzer(newStore(t), zone).Summarize(context.Background(), local(5, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, s.TotalFasts)
	assert.Zero(t, s.ShortestHours)
	assert.Nil(t, s.Active)
}

func TestDailyHoursCountsOverlapOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t,
		closed("a", local(9, 2, 0), local(9, 10, 0), 0),
		closed("b", local(9, 8, 0), local(9, 14, 0), 0),
		closed("c", local(9, 20, 0), local(10, 12, 0), 0),
		&database.Fast{ID: "open", StartTime: local(10, 20, 0)},
	)

	now := local(10, 22, 30)
	daily, err := NewAnalyzer(store, zone).DailyHours(ctx, 3, now)
	require.NoError(t, err)

	assert.Equal(t, []DayHours{
		{Date: "2024-06-08", Hours: 0},
		{Date: "2024-06-09", Hours: 16}, // 02:00–14:00 merged + 20:00–24:00
		{Date: "2024-06-10", Hours: 14.5},
	}, daily)
}

func TestDailyHoursAcrossDaylightSaving(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	at := func(day, hh, mm int) time.Time { return time.Date(2024, time.March, day, hh, mm, 0, 0, ny) }

	store := newStore(t, closed("late", at(10, 23, 0), at(11, 0, 45), 0))
	daily, err := NewAnalyzer(store, ny).DailyHours(context.Background(), 3, at(11, 12, 0))
	require.NoError(t, err)

	assert.Equal(t, []DayHours{
		{Date: "2024-03-09", Hours: 0},
		{Date: "2024-03-10", Hours: 1},
		{Date: "2024-03-11", Hours: 0.75},
	}, daily)
}

func TestTrend(t *testing.T) {
	ctx := context.Background()
	var fasts []*database.Fast
	for i := 0; i < 5; i++ {
		start := local(1+i, 20, 0)
		fasts = append(fasts, closed(string(rune('a'+i)), start, start.Add(time.Duration(12+i)*time.Hour), 0))
	}
	store := newStore(t, fasts...)

	trend, err := NewAnalyzer(store, zone).Trend(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, trend.Samples)
	assert.InDelta(t, 1.0, trend.Slope, 0.001)
	assert.InDelta(t, 12.0, trend.Intercept, 0.001)
	assert.Equal(t, "up", trend.Direction)

	trend, err = NewAnalyzer(store, zone).Trend(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, trend.Samples)
	assert.Equal(t, "flat", trend.Direction)
}

func TestFullReportMarkdown(t *testing.T) {
	ctx := context.Background()
	store := newStore(t,
		closed("a", local(1, 20, 0), local(2, 12, 0), 16*60),
		closed("b", local(2, 20, 0), local(3, 14, 0), 16*60),
	)

	report, err := NewAnalyzer(store, zone).FullReport(ctx, 7, local(3, 18, 0))
	require.NoError(t, err)
	require.Len(t, report.Daily, 7)

	md := FormatReport(report)
	assert.True(t, strings.HasPrefix(md, "# Fastline Statistics"))
	assert.Contains(t, md, "| Completed | 2 |")
	assert.Contains(t, md, "| Goals Reached | 2 / 2 (100.0%) |")
	assert.Contains(t, md, "## Trend")
}
