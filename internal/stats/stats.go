// Package stats provides deterministic aggregate statistics over the
// recorded fasts.
//
// Key capabilities:
//   - Totals, averages and extremes of completed fasts
//   - Goal success rate and day streaks
//   - Fasted hours per calendar day (overlaps counted once)
//   - Duration trend via linear regression
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
	"gonum.org/v1/gonum/stat"
)

// Analyzer computes statistics from the store. Calendar questions
// (streaks, daily hours) are answered in loc.
type Analyzer struct {
	store database.Store
	loc   *time.Location
}

// NewAnalyzer creates a statistics engine backed by the given store.
func NewAnalyzer(store database.Store, loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.Local
	}
	return &Analyzer{store: store, loc: loc}
}

// ============================================================
// Summary
// ============================================================

// Summary aggregates every recorded fast.
type Summary struct {
	TotalFasts      int         `json:"total_fasts"`
	CompletedFasts  int         `json:"completed_fasts"`
	TotalHours      float64     `json:"total_hours"`
	AverageHours    float64     `json:"average_hours"`
	LongestHours    float64     `json:"longest_hours"`
	ShortestHours   float64     `json:"shortest_hours"`
	GoalsSet        int         `json:"goals_set"`
	GoalsReached    int         `json:"goals_reached"`
	GoalSuccessRate float64     `json:"goal_success_rate"` // Percentage of goals reached
	CurrentStreak   int         `json:"current_streak_days"`
	LongestStreak   int         `json:"longest_streak_days"`
	Active          *ActiveFast `json:"active,omitempty"`
}

// ActiveFast describes the fast currently in progress.
type ActiveFast struct {
	ID           string    `json:"id"`
	Start        time.Time `json:"start"`
	ElapsedHours float64   `json:"elapsed_hours"`
	GoalHours    float64   `json:"goal_hours"`
	Progress     float64   `json:"progress"` // 0.0–1.0, capped
}

// Summarize computes the Summary as of now.
func (a *Analyzer) Summarize(ctx context.Context, now time.Time) (*Summary, error) {
	fasts, err := a.store.QueryFasts(ctx, database.FastFilter{})
	if err != nil {
		return nil, fmt.Errorf("querying fasts for summary: %w", err)
	}
	return summarize(fasts, now, a.loc), nil
}

func summarize(fasts []*database.Fast, now time.Time, loc *time.Location) *Summary {
	s := &Summary{TotalFasts: len(fasts)}

	var total, longest time.Duration
	shortest := time.Duration(math.MaxInt64)
	var endDays []timeline.Day

	for _, f := range fasts {
		if f.Ongoing() {
			elapsed := f.Duration(now)
			active := &ActiveFast{
				ID:           f.ID,
				Start:        f.StartTime,
				ElapsedHours: round2(elapsed.Hours()),
				GoalHours:    round2(f.Goal().Hours()),
			}
			if f.GoalMinutes > 0 {
				active.Progress = math.Min(1, float64(elapsed)/float64(f.Goal()))
			}
			s.Active = active
			continue
		}

		d := f.Duration(now)
		s.CompletedFasts++
		total += d
		longest = max(longest, d)
		shortest = min(shortest, d)

		if f.GoalMinutes > 0 {
			s.GoalsSet++
			if f.GoalReached(now) {
				s.GoalsReached++
			}
		}
		endDays = append(endDays, timeline.DayOf(*f.EndTime, loc))
	}

	if s.CompletedFasts > 0 {
		s.TotalHours = round2(total.Hours())
		s.AverageHours = round2(total.Hours() / float64(s.CompletedFasts))
		s.LongestHours = round2(longest.Hours())
		s.ShortestHours = round2(shortest.Hours())
	}
	if s.GoalsSet > 0 {
		s.GoalSuccessRate = math.Round(float64(s.GoalsReached)/float64(s.GoalsSet)*10000) / 100
	}

	s.CurrentStreak, s.LongestStreak = streaks(endDays, timeline.DayOf(now, loc))
	return s
}

// streaks counts runs of consecutive days that have at least one
// completed fast. The current streak may end today or yesterday; a day
// without a finished fast yet does not break it.
func streaks(days []timeline.Day, today timeline.Day) (current, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	set := make(map[timeline.Day]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	unique := make([]timeline.Day, 0, len(set))
	for d := range set {
		unique = append(unique, d)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })

	run := 0
	for i, d := range unique {
		if i > 0 && unique[i-1].AddDays(1) == d {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	cursor := today
	if !set[cursor] {
		cursor = today.AddDays(-1)
	}
	for set[cursor] {
		current++
		cursor = cursor.AddDays(-1)
	}
	return current, longest
}

// ============================================================
// Daily hours
// ============================================================

// DayHours is the fasted time on one calendar day.
type DayHours struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// DailyHours returns the fasted hours for each of the last n days ending
// with today, oldest first. Overlapping fasts are counted once.
func (a *Analyzer) DailyHours(ctx context.Context, n int, now time.Time) ([]DayHours, error) {
	if n <= 0 {
		return nil, nil
	}

	today := timeline.DayOf(now, a.loc)
	first := today.AddDays(-(n - 1))
	from := first.Start(a.loc)
	to := today.End(a.loc)

	fasts, err := a.store.FastsOverlapping(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying fasts for daily hours: %w", err)
	}
	intervals := database.Intervals(fasts)

	out := make([]DayHours, 0, n)
	for d := first; !today.Before(d); d = d.AddDays(1) {
		segs := timeline.Segments(d, a.loc, now, intervals)
		out = append(out, DayHours{
			Date:  d.String(),
			Hours: round2(timeline.ActiveDuration(segs, d.Length(a.loc)).Hours()),
		})
	}
	return out, nil
}

// ============================================================
// Trend
// ============================================================

// TrendReport describes how completed-fast durations evolve.
type TrendReport struct {
	Samples   int     `json:"samples"`
	Slope     float64 `json:"slope_hours_per_fast"`
	Intercept float64 `json:"intercept_hours"`
	RSquared  float64 `json:"r_squared"`
	Direction string  `json:"direction"` // "up", "down", "flat"
}

// dataPoint is one observation for regression analysis.
type dataPoint struct {
	x float64 // Fast index, oldest first
	y float64 // Duration in hours
}

// Trend fits a line through the durations of the most recent `window`
// completed fasts (all of them when window <= 0).
func (a *Analyzer) Trend(ctx context.Context, window int) (*TrendReport, error) {
	fasts, err := a.store.QueryFasts(ctx, database.FastFilter{OnlyCompleted: true, Limit: window})
	if err != nil {
		return nil, fmt.Errorf("querying fasts for trend: %w", err)
	}

	// QueryFasts is newest first.
	points := make([]dataPoint, 0, len(fasts))
	for i := len(fasts) - 1; i >= 0; i-- {
		f := fasts[i]
		points = append(points, dataPoint{
			x: float64(len(points)),
			y: f.EndTime.Sub(f.StartTime).Hours(),
		})
	}

	slope, intercept, rSquared := linearRegression(points)

	direction := "flat"
	switch {
	case len(points) < 2:
	case slope > 0.05:
		direction = "up"
	case slope < -0.05:
		direction = "down"
	}

	return &TrendReport{
		Samples:   len(points),
		Slope:     math.Round(slope*1000) / 1000,
		Intercept: round2(intercept),
		RSquared:  math.Round(rSquared*1000) / 1000,
		Direction: direction,
	}, nil
}

// linearRegression computes ordinary least squares regression.
// Returns slope (m), intercept (b), and R-squared goodness of fit.
func linearRegression(points []dataPoint) (slope, intercept, rSquared float64) {
	if len(points) < 2 {
		return 0, 0, 0
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.x
		ys[i] = p.y
	}

	if stat.Variance(xs, nil) == 0 {
		return 0, stat.Mean(ys, nil), 0
	}

	intercept, slope = stat.LinearRegression(xs, ys, nil, false)

	// A constant series is fitted exactly; RSquared would divide by zero.
	if stat.Variance(ys, nil) == 0 {
		return slope, intercept, 1.0
	}
	rSquared = stat.RSquared(xs, ys, nil, intercept, slope)

	return slope, intercept, rSquared
}

// ============================================================
// Full Report
// ============================================================

// Report is the complete output of `fastline stats`.
type Report struct {
	GeneratedAt string       `json:"generated_at"`
	Timezone    string       `json:"timezone"`
	Summary     *Summary     `json:"summary"`
	Daily       []DayHours   `json:"daily"`
	Trend       *TrendReport `json:"trend"`
}

// FullReport runs every pass. days controls the length of the daily
// breakdown; the trend is fitted over every completed fast.
func (a *Analyzer) FullReport(ctx context.Context, days int, now time.Time) (*Report, error) {
	report := &Report{
		GeneratedAt: now.In(a.loc).Format(time.RFC3339),
		Timezone:    a.loc.String(),
	}

	summary, err := a.Summarize(ctx, now)
	if err != nil {
		return nil, err
	}
	report.Summary = summary

	daily, err := a.DailyHours(ctx, days, now)
	if err != nil {
		return nil, err
	}
	report.Daily = daily

	trend, err := a.Trend(ctx, 0)
	if err != nil {
		return nil, err
	}
	report.Trend = trend

	return report, nil
}

// FormatReport renders a report as markdown.
func FormatReport(report *Report) string {
	var b strings.Builder

	b.WriteString("# Fastline Statistics\n\n")
	b.WriteString(fmt.Sprintf("**Generated:** %s (%s)\n\n", report.GeneratedAt, report.Timezone))

	if s := report.Summary; s != nil {
		b.WriteString("## Summary\n\n")
		b.WriteString("| Metric | Value |\n")
		b.WriteString("|--------|-------|\n")
		b.WriteString(fmt.Sprintf("| Total Fasts | %d |\n", s.TotalFasts))
		b.WriteString(fmt.Sprintf("| Completed | %d |\n", s.CompletedFasts))
		b.WriteString(fmt.Sprintf("| Total Hours | %.1f |\n", s.TotalHours))
		b.WriteString(fmt.Sprintf("| Average | %s |\n", formatHours(s.AverageHours)))
		b.WriteString(fmt.Sprintf("| Longest | %s |\n", formatHours(s.LongestHours)))
		b.WriteString(fmt.Sprintf("| Shortest | %s |\n", formatHours(s.ShortestHours)))
		b.WriteString(fmt.Sprintf("| Goals Reached | %d / %d (%.1f%%) |\n", s.GoalsReached, s.GoalsSet, s.GoalSuccessRate))
		b.WriteString(fmt.Sprintf("| Current Streak | %d days |\n", s.CurrentStreak))
		b.WriteString(fmt.Sprintf("| Longest Streak | %d days |\n\n", s.LongestStreak))

		if s.Active != nil {
			b.WriteString(fmt.Sprintf("**In progress:** %s elapsed", formatHours(s.Active.ElapsedHours)))
			if s.Active.GoalHours > 0 {
				b.WriteString(fmt.Sprintf(" of %s (%.0f%%)", formatHours(s.Active.GoalHours), s.Active.Progress*100))
			}
			b.WriteString("\n\n")
		}
	}

	if len(report.Daily) > 0 {
		b.WriteString("## Daily Fasted Hours\n\n")
		b.WriteString("| Date | Hours |\n")
		b.WriteString("|------|-------|\n")
		for _, d := range report.Daily {
			b.WriteString(fmt.Sprintf("| %s | %.1f |\n", d.Date, d.Hours))
		}
		b.WriteString("\n")
	}

	if t := report.Trend; t != nil && t.Samples >= 2 {
		b.WriteString("## Trend\n\n")
		b.WriteString(fmt.Sprintf("- **Samples:** %d\n", t.Samples))
		b.WriteString(fmt.Sprintf("- **Slope:** %+.3f h per fast\n", t.Slope))
		b.WriteString(fmt.Sprintf("- **R² Fit:** %.3f\n", t.RSquared))
		b.WriteString(fmt.Sprintf("- **Direction:** %s\n", t.Direction))
	}

	return b.String()
}

func formatHours(h float64) string {
	return timeutil.FormatDuration(time.Duration(h * float64(time.Hour)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
