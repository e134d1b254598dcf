package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/internal/tui"
	"github.com/Mr-Dark-debug/fastline/pkg/jsonutil"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	barWidth     int
	timelineJSON bool
)

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD|today|yesterday]",
	Short: "Show one day's 24-hour timeline",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runDay),
}

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Show a month of timelines",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runMonth),
}

func init() {
	for _, c := range []*cobra.Command{dayCmd, monthCmd} {
		c.Flags().IntVarP(&barWidth, "width", "w", 48, "Bar width in characters")
		c.Flags().BoolVar(&timelineJSON, "json", false, "Print segments as JSON")
	}
	rootCmd.AddCommand(dayCmd, monthCmd)
}

func runDay(cmd *cobra.Command, args []string, a *app) error {
	ctx := commandContext(cmd)
	t := now()
	day, err := parseDay(args, t, a.loc)
	if err != nil {
		return err
	}

	from, to := day.Start(a.loc), day.End(a.loc)
	fasts, err := a.store.FastsOverlapping(ctx, from, to)
	if err != nil {
		return err
	}
	segments := timeline.Segments(day, a.loc, t, database.Intervals(fasts))

	out := cmd.OutOrStdout()
	if timelineJSON {
		return writeJSON(out, timeline.DayTimeline{Day: day, Date: day.String(), Segments: segments})
	}

	theme := a.cfg.UI.Theme
	width := max(barWidth, 12)

	color.New(color.Bold).Fprintf(out, "%s %s\n\n", day.Weekday(), day)
	fmt.Fprintf(out, "  %s\n", hourRuler(width))
	fmt.Fprintf(out, "  %s\n\n", tui.RenderBar(segments, width, theme))

	length := day.Length(a.loc)
	var offset float64
	for _, s := range segments {
		from := day.Clock(a.loc, offset)
		offset += s.Weight
		span := time.Duration(s.Weight * float64(length)).Round(time.Minute)
		fmt.Fprintf(out, "  %s–%s  %-8s %s\n", from, day.Clock(a.loc, offset), s.State, timeutil.FormatDuration(span))
	}
	fmt.Fprintf(out, "\n  Fasted: %s\n", timeutil.FormatDuration(timeline.ActiveDuration(segments, length)))

	if len(fasts) > 0 {
		fmt.Fprintln(out)
		for _, f := range fasts {
			end := "now"
			if f.EndTime != nil {
				end = timeutil.FormatTimestamp(*f.EndTime, a.loc)
			}
			fmt.Fprintf(out, "  %s  %s → %s", shortID(f.ID), timeutil.FormatTimestamp(f.StartTime, a.loc), end)
			if f.Note != "" {
				fmt.Fprintf(out, "  %s", f.Note)
			}
			fmt.Fprintln(out)
		}
	}
	return nil
}

func runMonth(cmd *cobra.Command, args []string, a *app) error {
	ctx := commandContext(cmd)
	t := now()
	year, month, err := parseMonth(args, t, a.loc)
	if err != nil {
		return err
	}

	first := timeline.Day{Year: year, Month: month, Day: 1}
	next := first.AddDays(timeline.DaysIn(year, month))
	fasts, err := a.store.FastsOverlapping(ctx, first.Start(a.loc), next.Start(a.loc))
	if err != nil {
		return err
	}
	days := timeline.Month(year, month, a.loc, t, database.Intervals(fasts))

	out := cmd.OutOrStdout()
	if timelineJSON {
		return writeJSON(out, days)
	}

	theme := a.cfg.UI.Theme
	width := max(barWidth, 12)
	today := timeline.DayOf(t, a.loc)

	color.New(color.Bold).Fprintf(out, "%s %d\n\n", month, year)
	fmt.Fprintf(out, "%8s%s\n", "", hourRuler(width))
	for _, d := range days {
		label := fmt.Sprintf("%s %2d", d.Day.Weekday().String()[:3], d.Day.Day)
		if d.Day == today {
			label = color.New(color.FgCyan, color.Bold).Sprint(label)
		}
		total := ""
		if active := timeline.ActiveDuration(d.Segments, d.Day.Length(a.loc)); active > 0 {
			total = timeutil.FormatDuration(active)
		}
		fmt.Fprintf(out, "%s  %s  %s\n", label, tui.RenderBar(d.Segments, width, theme), total)
	}
	return nil
}

func hourRuler(width int) string {
	line := []byte(strings.Repeat(" ", width))
	for h := 0; h < 24; h += 6 {
		pos := h * width / 24
		copy(line[pos:], fmt.Sprintf("%02d", h))
	}
	return string(line)
}

func writeJSON(w io.Writer, v any) error {
	return jsonutil.WriteIndented(w, v)
}
