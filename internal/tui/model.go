package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/stats"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// ────────────────────────────────────────────────────────────
// Pane focuses
// ────────────────────────────────────────────────────────────

// Pane represents which UI pane currently has keyboard focus.
type Pane int

const (
	PaneCalendar Pane = iota
	PaneDetail
	PaneStats
	paneCount
)

// chartDays is the length of the stats pane's bar chart.
const chartDays = 7

// Options configures a Model.
type Options struct {
	Location    *time.Location
	DefaultGoal time.Duration
	Theme       string
	Logger      zerolog.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// ────────────────────────────────────────────────────────────
// Model
// ────────────────────────────────────────────────────────────

// Model is the root BubbleTea model for the Fastline TUI.
// State is organized by concern; rendering is delegated
// to component functions in separate files.
type Model struct {
	store    database.Store
	analyzer *stats.Analyzer
	loc      *time.Location
	goal     time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	// Data
	year    int
	month   time.Month
	fasts   []*database.Fast // fasts touching the viewed month
	days    []timeline.DayTimeline
	active  *database.Fast
	summary *stats.Summary
	daily   []stats.DayHours

	// UI state
	selected   timeline.Day
	activePane Pane
	theme      Theme
	styles     styles
	keys       keyMap
	help       help.Model
	clock      time.Time
	width      int
	height     int

	// Status
	statusMsg string
	err       error
}

// NewModel creates a new TUI model backed by the given store.
func NewModel(store database.Store, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	now := opts.Now()
	today := timeline.DayOf(now, opts.Location)

	m := Model{
		store:     store,
		analyzer:  stats.NewAnalyzer(store, opts.Location),
		loc:       opts.Location,
		goal:      opts.DefaultGoal,
		logger:    opts.Logger.With().Str("component", "tui").Logger(),
		now:       opts.Now,
		year:      today.Year,
		month:     today.Month,
		selected:  today,
		keys:      defaultKeyMap(),
		help:      help.New(),
		clock:     now,
		statusMsg: "Loading...",
	}
	m.applyTheme(opts.Theme)
	return m
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

type monthLoadedMsg struct {
	year  int
	month time.Month
	fasts []*database.Fast
}

type statsLoadedMsg struct {
	active  *database.Fast
	summary *stats.Summary
	daily   []stats.DayHours
}

type prefsLoadedMsg struct{ theme string }

type fastChangedMsg struct {
	fast    *database.Fast
	started bool
}

type themeSavedMsg struct{ theme string }

type tickMsg time.Time

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadPrefs(),
		m.loadMonth(m.year, m.month),
		m.loadStats(),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadPrefs() tea.Cmd {
	return func() tea.Msg {
		theme, ok, err := m.store.GetPreference(context.Background(), config.PrefTheme)
		if err != nil {
			return errMsg{err}
		}
		if !ok {
			return nil
		}
		return prefsLoadedMsg{theme: theme}
	}
}

func (m Model) loadMonth(year int, month time.Month) tea.Cmd {
	return func() tea.Msg {
		first := timeline.Day{Year: year, Month: month, Day: 1}
		next := first.AddDays(timeline.DaysIn(year, month))
		fasts, err := m.store.FastsOverlapping(context.Background(), first.Start(m.loc), next.Start(m.loc))
		if err != nil {
			return errMsg{err}
		}
		return monthLoadedMsg{year: year, month: month, fasts: fasts}
	}
}

func (m Model) loadStats() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		now := m.now()
		active, err := m.store.ActiveFast(ctx)
		if err != nil {
			return errMsg{err}
		}
		summary, err := m.analyzer.Summarize(ctx, now)
		if err != nil {
			return errMsg{err}
		}
		daily, err := m.analyzer.DailyHours(ctx, chartDays, now)
		if err != nil {
			return errMsg{err}
		}
		return statsLoadedMsg{active: active, summary: summary, daily: daily}
	}
}

func (m Model) startFast() tea.Cmd {
	return func() tea.Msg {
		fast, err := m.store.StartFast(context.Background(), m.now(), m.goal, "")
		if err != nil {
			return errMsg{err}
		}
		return fastChangedMsg{fast: fast, started: true}
	}
}

func (m Model) stopFast() tea.Cmd {
	return func() tea.Msg {
		fast, err := m.store.StopFast(context.Background(), m.now())
		if err != nil {
			return errMsg{err}
		}
		return fastChangedMsg{fast: fast}
	}
}

func (m Model) saveTheme(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.SetPreference(context.Background(), config.PrefTheme, name); err != nil {
			return errMsg{err}
		}
		return themeSavedMsg{theme: name}
	}
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		prev := m.clock
		m.clock = time.Time(msg)
		// Segments have minute resolution.
		if m.active != nil && m.clock.Truncate(time.Minute) != prev.Truncate(time.Minute) {
			m.rebuildDays()
		}
		return m, tick()

	case prefsLoadedMsg:
		if _, ok := themes[msg.theme]; ok {
			m.applyTheme(msg.theme)
		}
		return m, nil

	case monthLoadedMsg:
		// A late reply for a month we already left.
		if msg.year != m.year || msg.month != m.month {
			return m, nil
		}
		m.fasts = msg.fasts
		m.rebuildDays()
		m.statusMsg = fmt.Sprintf("%d fasts in %s %d", len(m.fasts), m.month, m.year)
		return m, nil

	case statsLoadedMsg:
		m.active = msg.active
		m.summary = msg.summary
		m.daily = msg.daily
		return m, nil

	case fastChangedMsg:
		if msg.started {
			m.statusMsg = fmt.Sprintf("Fast started, goal %s", timeutil.FormatDuration(msg.fast.Goal()))
			m.logger.Info().Str("id", msg.fast.ID).Msg("Fast started")
		} else {
			m.statusMsg = fmt.Sprintf("Fast stopped after %s", timeutil.FormatDuration(msg.fast.Duration(m.now())))
			m.logger.Info().Str("id", msg.fast.ID).Msg("Fast stopped")
		}
		m.err = nil
		return m, m.refresh()

	case themeSavedMsg:
		m.statusMsg = "Theme: " + msg.theme
		return m, nil

	case errMsg:
		m.err = msg.err
		m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		m.logger.Error().Err(msg.err).Msg("TUI operation failed")
		return m, nil
	}

	return m, nil
}

// handleKey routes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.activePane = (m.activePane + 1) % paneCount
		return m, nil

	case key.Matches(msg, m.keys.Up):
		return m.selectDay(m.selected.AddDays(-1))
	case key.Matches(msg, m.keys.Down):
		return m.selectDay(m.selected.AddDays(1))
	case key.Matches(msg, m.keys.Left):
		return m.selectDay(m.selected.AddDays(-7))
	case key.Matches(msg, m.keys.Right):
		return m.selectDay(m.selected.AddDays(7))
	case key.Matches(msg, m.keys.PrevMonth):
		return m.selectDay(shiftMonth(m.selected, -1))
	case key.Matches(msg, m.keys.NextMonth):
		return m.selectDay(shiftMonth(m.selected, 1))
	case key.Matches(msg, m.keys.Today):
		return m.selectDay(timeline.DayOf(m.now(), m.loc))

	case key.Matches(msg, m.keys.Start):
		if m.active != nil {
			m.statusMsg = "A fast is already in progress"
			return m, nil
		}
		return m, m.startFast()

	case key.Matches(msg, m.keys.Stop):
		if m.active == nil {
			m.statusMsg = "No fast in progress"
			return m, nil
		}
		return m, m.stopFast()

	case key.Matches(msg, m.keys.Theme):
		next := NextTheme(m.theme.Name)
		m.applyTheme(next)
		return m, m.saveTheme(next)
	}

	return m, nil
}

// selectDay moves the cursor, loading another month when it crosses over.
func (m Model) selectDay(day timeline.Day) (tea.Model, tea.Cmd) {
	m.selected = day
	if day.Year == m.year && day.Month == m.month {
		return m, nil
	}
	m.year, m.month = day.Year, day.Month
	m.fasts = nil
	m.rebuildDays()
	m.statusMsg = "Loading..."
	return m, m.loadMonth(m.year, m.month)
}

// refresh reloads everything that depends on the store.
func (m Model) refresh() tea.Cmd {
	return tea.Batch(m.loadMonth(m.year, m.month), m.loadStats())
}

func (m *Model) rebuildDays() {
	m.days = timeline.Month(m.year, m.month, m.loc, m.now(), database.Intervals(m.fasts))
}

func (m *Model) applyTheme(name string) {
	m.theme = ThemeByName(name)
	m.styles = newStyles(m.theme)

	h := &m.help.Styles
	h.ShortKey = lipgloss.NewStyle().Foreground(m.theme.Text).Bold(true)
	h.ShortDesc = lipgloss.NewStyle().Foreground(m.theme.TextMuted)
	h.ShortSeparator = lipgloss.NewStyle().Foreground(m.theme.TextMuted)
	h.FullKey = h.ShortKey
	h.FullDesc = h.ShortDesc
	h.FullSeparator = h.ShortSeparator
	h.Ellipsis = h.ShortSeparator
}

// shiftMonth moves day by n months, clamping the day of month.
func shiftMonth(day timeline.Day, n int) timeline.Day {
	first := time.Date(day.Year, day.Month+time.Month(n), 1, 12, 0, 0, 0, time.UTC)
	d := day.Day
	if last := timeline.DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return timeline.Day{Year: first.Year(), Month: first.Month(), Day: d}
}

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := renderHeader(&m)
	footer := renderFooter(&m)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderMainLayout(bodyHeight), footer)
}

// renderMainLayout places the calendar left and detail over stats right.
func (m Model) renderMainLayout(totalHeight int) string {
	// Responsive: collapse to single pane on narrow terminals
	if m.width < 80 {
		return m.renderCompactLayout(totalHeight)
	}

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth
	topHeight := totalHeight * 55 / 100
	bottomHeight := totalHeight - topHeight

	calendar := renderCalendarPanel(&m, leftWidth, totalHeight)
	detail := renderDetailPanel(&m, rightWidth, topHeight)
	statsPane := renderStatsPanel(&m, rightWidth, bottomHeight)

	right := lipgloss.JoinVertical(lipgloss.Left, detail, statsPane)
	return lipgloss.JoinHorizontal(lipgloss.Top, calendar, right)
}

// renderCompactLayout is used when the terminal is narrow (< 80 cols).
// Only the focused pane is shown.
func (m Model) renderCompactLayout(totalHeight int) string {
	switch m.activePane {
	case PaneDetail:
		return renderDetailPanel(&m, m.width, totalHeight)
	case PaneStats:
		return renderStatsPanel(&m, m.width, totalHeight)
	default:
		return renderCalendarPanel(&m, m.width, totalHeight)
	}
}
