package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
)

// renderDetail renders the selected day: its fasts and its segment runs.
func renderDetail(m *Model, width, height int) string {
	st := m.styles
	titleStyle := st.panelTitleDim
	if m.activePane == PaneDetail {
		titleStyle = st.panelTitle
	}
	title := titleStyle.Render(m.selected.Weekday().String() + " " + m.selected.String())

	var lines []string
	lines = append(lines, title)
	lines = append(lines, "")

	// ── Fasts ──

	fasts := fastsOn(m.fasts, m.selected, m.loc, m.clock)
	if len(fasts) == 0 {
		lines = append(lines, st.dim.Render("No fasts on this day."))
	}
	for _, f := range fasts {
		lines = append(lines, renderFastLine(m, f))
		if f.Note != "" {
			lines = append(lines, "  "+st.dim.Render(truncate(f.Note, width-2)))
		}
		if f.Ongoing() && f.GoalMinutes > 0 {
			lines = append(lines, "  "+renderGoalBar(m, f, width-2))
		}
	}

	// ── Segments ──

	if day := m.dayTimeline(m.selected); day != nil {
		lines = append(lines, "")
		lines = append(lines, st.detailSection.Render("Segments"))
		var offset float64
		for _, seg := range day.Segments {
			from := day.Day.Clock(m.loc, offset)
			offset += seg.Weight
			to := day.Day.Clock(m.loc, offset)
			state := st.barInactive.Render(seg.State.String())
			if seg.State == timeline.Active {
				state = st.barActive.Render(seg.State.String())
			}
			lines = append(lines, fmt.Sprintf("%s–%s  %s", from, to, state))
		}
		lines = append(lines, detailRow(m, "Fasted",
			timeutil.FormatDuration(timeline.ActiveDuration(day.Segments, day.Day.Length(m.loc)))))
	}

	// Truncate to available height
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func renderFastLine(m *Model, f *database.Fast) string {
	st := m.styles
	start := timeutil.FormatTimestamp(f.StartTime, m.loc)
	end := "now"
	if f.EndTime != nil {
		end = timeutil.FormatTimestamp(*f.EndTime, m.loc)
	}

	line := fmt.Sprintf("%s → %s  %s", start, end, timeutil.FormatDuration(f.Duration(m.clock)))
	switch {
	case f.GoalMinutes == 0:
		return st.detailValue.Render(line)
	case f.GoalReached(m.clock):
		return st.detailValue.Render(line) + "  " + st.goalMet.Render("✓ "+timeutil.FormatDuration(f.Goal()))
	default:
		return st.detailValue.Render(line) + "  " + st.goalPending.Render("goal "+timeutil.FormatDuration(f.Goal()))
	}
}

// renderGoalBar draws progress toward the goal of an ongoing fast.
func renderGoalBar(m *Model, f *database.Fast, width int) string {
	barWidth := width - 6
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 4 {
		return ""
	}

	progress := f.Progress(m.clock)
	filled := int(progress * float64(barWidth))

	bar := m.styles.barActive.Render(strings.Repeat("█", filled)) +
		m.styles.barInactive.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %3d%%", bar, int(progress*100))
}

// renderDetailPanel wraps detail in a styled panel.
func renderDetailPanel(m *Model, width, height int) string {
	content := renderDetail(m, width-4, height-2)

	style := m.styles.panel
	if m.activePane == PaneDetail {
		style = m.styles.panelActive
	}

	return style.Width(width).Height(height).Render(content)
}

// dayTimeline returns the loaded timeline for day, if it is in view.
func (m *Model) dayTimeline(day timeline.Day) *timeline.DayTimeline {
	for i := range m.days {
		if m.days[i].Day == day {
			return &m.days[i]
		}
	}
	return nil
}

// ── helpers ──

func detailRow(m *Model, label, value string) string {
	return m.styles.detailLabel.Render(label) + "  " + m.styles.detailValue.Render(value)
}
