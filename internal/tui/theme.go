package tui

import (
	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/charmbracelet/lipgloss"
)

// ────────────────────────────────────────────────────────────
// Color palettes
// ────────────────────────────────────────────────────────────
//
// All colors are defined here. No ad-hoc color literals anywhere.
// Every palette fills the same slots so styles can be rebuilt when
// the user cycles themes.

// Theme is one named color palette.
type Theme struct {
	Name string

	// Base
	Bg      lipgloss.Color
	Surface lipgloss.Color

	// Text
	Text      lipgloss.Color
	TextDim   lipgloss.Color
	TextMuted lipgloss.Color

	// Accents
	Accent   lipgloss.Color
	Active   lipgloss.Color // fasting
	Inactive lipgloss.Color // eating window
	Success  lipgloss.Color
	Warn     lipgloss.Color

	// Structural
	Divider   lipgloss.Color
	Highlight lipgloss.Color
}


var themes = map[string]Theme{
	// GitHub Dark
	"dark": {
		Name:      "dark",
		Bg:        lipgloss.Color("#0d1117"),
		Surface:   lipgloss.Color("#1c2128"),
		Text:      lipgloss.Color("#e6edf3"),
		TextDim:   lipgloss.Color("#8b949e"),
		TextMuted: lipgloss.Color("#484f58"),
		Accent:    lipgloss.Color("#58a6ff"),
		Active:    lipgloss.Color("#3fb950"),
		Inactive:  lipgloss.Color("#30363d"),
		Success:   lipgloss.Color("#3fb950"),
		Warn:      lipgloss.Color("#d29922"),
		Divider:   lipgloss.Color("#30363d"),
		Highlight: lipgloss.Color("#1f6feb"),
	},
	// GitHub Light
	"light": {
		Name:      "light",
		Bg:        lipgloss.Color("#ffffff"),
		Surface:   lipgloss.Color("#f6f8fa"),
		Text:      lipgloss.Color("#1f2328"),
		TextDim:   lipgloss.Color("#656d76"),
		TextMuted: lipgloss.Color("#8c959f"),
		Accent:    lipgloss.Color("#0969da"),
		Active:    lipgloss.Color("#1a7f37"),
		Inactive:  lipgloss.Color("#d0d7de"),
		Success:   lipgloss.Color("#1a7f37"),
		Warn:      lipgloss.Color("#9a6700"),
		Divider:   lipgloss.Color("#d0d7de"),
		Highlight: lipgloss.Color("#ddf4ff"),
	},
	"solarized": {
		Name:      "solarized",
		Bg:        lipgloss.Color("#002b36"),
		Surface:   lipgloss.Color("#073642"),
		Text:      lipgloss.Color("#93a1a1"),
		TextDim:   lipgloss.Color("#839496"),
		TextMuted: lipgloss.Color("#586e75"),
		Accent:    lipgloss.Color("#268bd2"),
		Active:    lipgloss.Color("#859900"),
		Inactive:  lipgloss.Color("#586e75"),
		Success:   lipgloss.Color("#859900"),
		Warn:      lipgloss.Color("#b58900"),
		Divider:   lipgloss.Color("#073642"),
		Highlight: lipgloss.Color("#073642"),
	},
	// ANSI 256 grays only
	"mono": {
		Name:      "mono",
		Bg:        lipgloss.Color("0"),
		Surface:   lipgloss.Color("235"),
		Text:      lipgloss.Color("255"),
		TextDim:   lipgloss.Color("250"),
		TextMuted: lipgloss.Color("243"),
		Accent:    lipgloss.Color("255"),
		Active:    lipgloss.Color("252"),
		Inactive:  lipgloss.Color("238"),
		Success:   lipgloss.Color("255"),
		Warn:      lipgloss.Color("245"),
		Divider:   lipgloss.Color("240"),
		Highlight: lipgloss.Color("238"),
	},
}

// ThemeByName returns the named theme, falling back to dark.
func ThemeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes["dark"]
}

// NextTheme returns the theme after name in config.Themes order.
func NextTheme(name string) string {
	names := config.Themes
	for i, n := range names {
		if n == name {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// ────────────────────────────────────────────────────────────
// Component Styles
// ────────────────────────────────────────────────────────────

type styles struct {
	// Header bar
	headerBar   lipgloss.Style
	headerBrand lipgloss.Style
	headerSep   lipgloss.Style
	headerMeta  lipgloss.Style

	// Panel chrome
	panel         lipgloss.Style
	panelActive   lipgloss.Style
	panelTitle    lipgloss.Style
	panelTitleDim lipgloss.Style

	// Calendar
	dayNormal   lipgloss.Style
	daySelected lipgloss.Style
	dayToday    lipgloss.Style
	dayWeekend  lipgloss.Style
	hourTick    lipgloss.Style
	barActive   lipgloss.Style
	barInactive lipgloss.Style

	// Detail / stats
	detailLabel   lipgloss.Style
	detailValue   lipgloss.Style
	detailSection lipgloss.Style
	goalMet       lipgloss.Style
	goalPending   lipgloss.Style
	dim           lipgloss.Style
	empty         lipgloss.Style

	// Footer / status bar
	status       lipgloss.Style
	statusAccent lipgloss.Style
	footer       lipgloss.Style
}

func newStyles(t Theme) styles {
	topRule := lipgloss.Border{Top: "─"}

	return styles{
		headerBar: lipgloss.NewStyle().
			Background(t.Surface).
			Foreground(t.Text).
			Padding(0, 1),
		headerBrand: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Accent),
		headerSep: lipgloss.NewStyle().
			Foreground(t.TextMuted),
		headerMeta: lipgloss.NewStyle().
			Foreground(t.TextDim),

		panel: lipgloss.NewStyle().
			Padding(0, 1).
			Border(topRule, true, false, false, false).
			BorderForeground(t.Divider),
		panelActive: lipgloss.NewStyle().
			Padding(0, 1).
			Border(topRule, true, false, false, false).
			BorderForeground(t.Accent),
		panelTitle: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true),
		panelTitleDim: lipgloss.NewStyle().
			Foreground(t.TextMuted).
			Bold(true),

		dayNormal: lipgloss.NewStyle().
			Foreground(t.Text),
		daySelected: lipgloss.NewStyle().
			Background(t.Highlight).
			Foreground(t.Text).
			Bold(true),
		dayToday: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true),
		dayWeekend: lipgloss.NewStyle().
			Foreground(t.TextDim),
		hourTick: lipgloss.NewStyle().
			Foreground(t.TextMuted),
		barActive: lipgloss.NewStyle().
			Foreground(t.Active),
		barInactive: lipgloss.NewStyle().
			Foreground(t.Inactive),

		detailLabel: lipgloss.NewStyle().
			Foreground(t.Accent),
		detailValue: lipgloss.NewStyle().
			Foreground(t.Text),
		detailSection: lipgloss.NewStyle().
			Foreground(t.TextMuted),
		goalMet: lipgloss.NewStyle().
			Foreground(t.Success),
		goalPending: lipgloss.NewStyle().
			Foreground(t.Warn),
		dim: lipgloss.NewStyle().
			Foreground(t.TextDim),
		empty: lipgloss.NewStyle().
			Foreground(t.TextMuted).
			Padding(1, 2),

		status: lipgloss.NewStyle().
			Foreground(t.Text).
			Background(t.Surface).
			Padding(0, 1),
		statusAccent: lipgloss.NewStyle().
			Foreground(t.Accent).
			Background(t.Surface).
			Bold(true).
			Padding(0, 1),
		footer: lipgloss.NewStyle().
			Background(t.Surface),
	}
}
