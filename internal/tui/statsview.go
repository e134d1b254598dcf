package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/fastline/internal/timeline"
)

// renderStats renders the summary numbers and the recent-days chart.
func renderStats(m *Model, width, height int) string {
	st := m.styles
	titleStyle := st.panelTitleDim
	if m.activePane == PaneStats {
		titleStyle = st.panelTitle
	}
	title := titleStyle.Render("Stats")

	if m.summary == nil {
		return title + "\n\n" + st.empty.Render("Loading statistics...")
	}

	s := m.summary
	lines := []string{title, ""}

	lines = append(lines, detailRow(m, "Fasts", fmt.Sprintf("%d completed", s.CompletedFasts)))
	lines = append(lines, detailRow(m, "Average", fmt.Sprintf("%.1fh", s.AverageHours)))
	lines = append(lines, detailRow(m, "Longest", fmt.Sprintf("%.1fh", s.LongestHours)))
	if s.GoalsSet > 0 {
		lines = append(lines, detailRow(m, "Goals", fmt.Sprintf("%d/%d (%.0f%%)",
			s.GoalsReached, s.GoalsSet, s.GoalSuccessRate)))
	}
	lines = append(lines, detailRow(m, "Streak", fmt.Sprintf("%d days (best %d)",
		s.CurrentStreak, s.LongestStreak)))

	// ── Daily chart ──

	if len(m.daily) > 0 {
		lines = append(lines, "")
		lines = append(lines, st.detailSection.Render(fmt.Sprintf("Last %d days", len(m.daily))))

		barWidth := width - 18
		if barWidth > 40 {
			barWidth = 40
		}
		for _, d := range m.daily {
			lines = append(lines, renderHoursBar(m, d.Date, d.Hours, barWidth))
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderHoursBar draws one chart row scaled against a full day.
func renderHoursBar(m *Model, date string, hours float64, barWidth int) string {
	label := date
	if day, err := timeline.ParseDay(date); err == nil {
		label = fmt.Sprintf("%s %02d", day.Weekday().String()[:3], day.Day)
	}
	if barWidth < 4 {
		return fmt.Sprintf("%-6s %5.1fh", label, hours)
	}

	filled := int(hours / 24 * float64(barWidth))
	if filled < 1 && hours > 0 {
		filled = 1
	}
	filled = clamp(filled, 0, barWidth)

	bar := m.styles.barActive.Render(strings.Repeat("█", filled)) +
		m.styles.barInactive.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%-6s %s %5.1fh", label, bar, hours)
}

// renderStatsPanel wraps stats in a styled panel.
func renderStatsPanel(m *Model, width, height int) string {
	content := renderStats(m, width-4, height-2)

	style := m.styles.panel
	if m.activePane == PaneStats {
		style = m.styles.panelActive
	}

	return style.Width(width).Height(height).Render(content)
}
