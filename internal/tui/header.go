package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
	"github.com/charmbracelet/lipgloss"
)

// renderHeader produces the top bar:
//
//	FASTLINE  │  June 2024  │  Fasting 9h 12m / 16h 00m  │  dark
func renderHeader(m *Model) string {
	st := m.styles
	sep := st.headerSep.Render(" │ ")

	parts := []string{
		st.headerBrand.Render("FASTLINE"),
		sep,
		st.headerMeta.Render(fmt.Sprintf("%s %d", m.month, m.year)),
		sep,
	}

	if m.active != nil {
		elapsed := timeutil.FormatDuration(m.active.Duration(m.clock))
		status := "Fasting " + elapsed
		if m.active.GoalMinutes > 0 {
			status += " / " + timeutil.FormatDuration(m.active.Goal())
		}
		style := st.goalPending
		if m.active.GoalReached(m.clock) {
			style = st.goalMet
		}
		parts = append(parts, style.Bold(true).Render(status))
		parts = append(parts, sep)
		parts = append(parts, st.headerMeta.Render("since "+timeutil.FormatClock(m.active.StartTime, m.loc)))
	} else {
		parts = append(parts, st.headerMeta.Render("Not fasting"))
	}

	parts = append(parts, sep, st.headerMeta.Render(m.theme.Name))

	return st.headerBar.Width(m.width).Render(strings.Join(parts, ""))
}

// renderFooter produces the bottom status bar with keyboard hints.
func renderFooter(m *Model) string {
	var left string
	if m.err != nil {
		left = m.styles.statusAccent.Render(m.statusMsg)
	} else if m.statusMsg != "" {
		left = m.styles.status.Render(m.statusMsg)
	}

	m.help.Width = m.width - lipgloss.Width(left) - 1
	right := m.help.View(m.keys)

	if m.help.ShowAll {
		return m.styles.footer.Width(m.width).Render(left + "\n" + right)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return m.styles.footer.Width(m.width).Render(bar)
}
