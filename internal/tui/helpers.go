package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
)

// ────────────────────────────────────────────────────────────
// Bar geometry
// ────────────────────────────────────────────────────────────

// BarWidths distributes width cells over segments in proportion to their
// weights. Widths are floored and the leftover cells go to the segments
// with the largest remainders (earlier segments win ties), so the result
// always sums to exactly width.
func BarWidths(segments []timeline.Segment, width int) []int {
	out := make([]int, len(segments))
	if width <= 0 || len(segments) == 0 {
		return out
	}

	var total float64
	for _, s := range segments {
		if s.Weight > 0 {
			total += s.Weight
		}
	}
	if total == 0 {
		out[0] = width
		return out
	}

	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, 0, len(segments))
	used := 0
	for i, s := range segments {
		w := s.Weight
		if w < 0 {
			w = 0
		}
		exact := w / total * float64(width)
		out[i] = int(exact)
		used += out[i]
		rems = append(rems, rem{idx: i, frac: exact - float64(out[i])})
	}

	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for i := 0; used < width; i = (i + 1) % len(rems) {
		out[rems[i].idx]++
		used++
	}
	return out
}

// PlainBar renders segments as unstyled block characters.
func PlainBar(segments []timeline.Segment, width int) string {
	var b strings.Builder
	for i, w := range BarWidths(segments, width) {
		b.WriteString(strings.Repeat(barGlyph(segments[i].State), w))
	}
	return b.String()
}

// RenderBar renders segments in the colors of the named theme.
func RenderBar(segments []timeline.Segment, width int, theme string) string {
	return renderBar(newStyles(ThemeByName(theme)), segments, width)
}

func renderBar(st styles, segments []timeline.Segment, width int) string {
	var b strings.Builder
	for i, w := range BarWidths(segments, width) {
		if w == 0 {
			continue
		}
		run := strings.Repeat(barGlyph(segments[i].State), w)
		if segments[i].State == timeline.Active {
			b.WriteString(st.barActive.Render(run))
		} else {
			b.WriteString(st.barInactive.Render(run))
		}
	}
	return b.String()
}

func barGlyph(s timeline.State) string {
	if s == timeline.Active {
		return "█"
	}
	return "░"
}

// ────────────────────────────────────────────────────────────
// Day helpers
// ────────────────────────────────────────────────────────────

// fastsOn returns the fasts touching day, in start order.
func fastsOn(fasts []*database.Fast, day timeline.Day, loc *time.Location, now time.Time) []*database.Fast {
	from := day.Start(loc)
	to := day.End(loc)

	var out []*database.Fast
	for _, f := range fasts {
		end := f.Interval().EffectiveEnd(now)
		if f.StartTime.Before(to) && end.After(from) {
			out = append(out, f)
		}
	}
	return out
}

// hourRuler draws hour ticks every six hours across width cells.
func hourRuler(width int) string {
	if width < 12 {
		return ""
	}
	line := []rune(strings.Repeat(" ", width))
	for h := 0; h < 24; h += 6 {
		pos := h * width / 24
		label := []rune(fmt.Sprintf("%02d", h))
		for i, r := range label {
			if pos+i < width {
				line[pos+i] = r
			}
		}
	}
	return string(line)
}

// ────────────────────────────────────────────────────────────
// String helpers
// ────────────────────────────────────────────────────────────

// truncate cuts a string to maxLen and appends "..." if truncated.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// clamp restricts val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
