package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
)

// dayLabelWidth is the width of "Thu 14 " plus the cursor column.
const dayLabelWidth = 9

// totalWidth is the width of the trailing "16h 30m" column.
const totalWidth = 8

// renderCalendar renders one row per day of the viewed month, each with
// its 24-hour bar.
//
//	        00    06    12    18
//	▸ Thu 14 ░░░░░░████████████░░░░░░  12h 00m
func renderCalendar(m *Model, width, height int) string {
	st := m.styles
	titleStyle := st.panelTitleDim
	if m.activePane == PaneCalendar {
		titleStyle = st.panelTitle
	}
	title := titleStyle.Render(fmt.Sprintf("%s %d", m.month, m.year))

	if len(m.days) == 0 {
		return title + "\n\n" + st.empty.Render("Loading month...")
	}

	barWidth := width - dayLabelWidth - totalWidth
	if barWidth < 4 {
		barWidth = 4
	}

	lines := []string{
		title,
		strings.Repeat(" ", dayLabelWidth) + st.hourTick.Render(hourRuler(barWidth)),
	}

	contentHeight := height - len(lines)
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Scroll so the selected day is visible
	selected := m.selected.Day - 1
	scrollStart := 0
	if selected >= contentHeight {
		scrollStart = selected - contentHeight + 1
	}
	end := scrollStart + contentHeight
	if end > len(m.days) {
		end = len(m.days)
	}

	today := timeline.DayOf(m.clock, m.loc)
	for i := scrollStart; i < end; i++ {
		lines = append(lines, renderDayRow(m, m.days[i], today, barWidth))
	}

	if len(m.days) > contentHeight {
		lines = append(lines, st.dim.Render(
			fmt.Sprintf(" %d/%d", m.selected.Day, len(m.days))))
	}

	return strings.Join(lines, "\n")
}

func renderDayRow(m *Model, day timeline.DayTimeline, today timeline.Day, barWidth int) string {
	st := m.styles

	cursor := "  "
	if day.Day == m.selected {
		cursor = "▸ "
	}

	label := fmt.Sprintf("%s %2d ", day.Day.Weekday().String()[:3], day.Day.Day)
	switch {
	case day.Day == m.selected:
		label = st.daySelected.Render(cursor + label)
	case day.Day == today:
		label = st.dayToday.Render(cursor + label)
	case day.Day.Weekday() == time.Saturday || day.Day.Weekday() == time.Sunday:
		label = st.dayWeekend.Render(cursor + label)
	default:
		label = st.dayNormal.Render(cursor + label)
	}

	total := ""
	if d := timeline.ActiveDuration(day.Segments, day.Day.Length(m.loc)); d > 0 {
		total = timeutil.FormatDuration(d)
	}

	return label + renderBar(st, day.Segments, barWidth) + " " + st.dim.Render(fmt.Sprintf("%*s", totalWidth-1, total))
}

// renderCalendarPanel wraps the calendar in a styled panel.
func renderCalendarPanel(m *Model, width, height int) string {
	content := renderCalendar(m, width-4, height-2)

	style := m.styles.panel
	if m.activePane == PaneCalendar {
		style = m.styles.panelActive
	}

	return style.Width(width).Height(height).Render(content)
}
