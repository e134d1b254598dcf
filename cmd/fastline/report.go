package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/stats"
	"github.com/Mr-Dark-debug/fastline/internal/timeline"
	"github.com/Mr-Dark-debug/fastline/internal/transfer"
	"github.com/Mr-Dark-debug/fastline/internal/tui"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	statsDays   int
	statsFormat string

	exportOutput string

	importSkipPrefs bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summary statistics and trends",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStats),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all fasts and preferences as JSON",
	Example: `  fastline export > backup.json
  fastline export -o backup.json`,
	Args: cobra.NoArgs,
	RunE: withApp(runExport),
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load a JSON export",
	Long: `Load fasts and preferences from a file written by export. Fasts with a
known ID are replaced; the whole file is rejected if any record is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runImport),
}

var themeCmd = &cobra.Command{
	Use:   "theme [" + strings.Join(config.Themes, "|") + "]",
	Short: "Show or set the color theme",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runTheme),
}

func init() {
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", 7, "Days in the daily breakdown (1-366)")
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", "markdown", "Output format: markdown, pretty, json")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	importCmd.Flags().BoolVar(&importSkipPrefs, "skip-preferences", false, "Import fasts only")

	rootCmd.AddCommand(statsCmd, exportCmd, importCmd, themeCmd)
}

func runStats(cmd *cobra.Command, args []string, a *app) error {
	if statsDays < 1 || statsDays > 366 {
		return fmt.Errorf("--days must be between 1 and 366")
	}

	ctx := commandContext(cmd)
	analyzer := stats.NewAnalyzer(a.store, a.loc)
	report, err := analyzer.FullReport(ctx, statsDays, now())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch statsFormat {
	case "json":
		return writeJSON(out, report)
	case "markdown":
		fmt.Fprint(out, stats.FormatReport(report))
		return nil
	case "pretty":
		rendered, err := renderMarkdown(stats.FormatReport(report), a.cfg.UI.Theme)
		if err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
		fmt.Fprint(out, rendered)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", statsFormat)
	}
}

// glamourStyles maps UI themes onto glamour's built-in styles.
var glamourStyles = map[string]string{
	"dark":      "dark",
	"light":     "light",
	"solarized": "dracula",
	"mono":      "notty",
}

// renderMarkdown renders md for the terminal in the style matching theme.
func renderMarkdown(md, theme string) (string, error) {
	style, ok := glamourStyles[theme]
	if !ok {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func runExport(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	doc, err := transfer.Export(commandContext(cmd), a.store, out, now())
	if err != nil {
		return err
	}
	a.logger.Info().Int("fasts", len(doc.Fasts)).Str("output", exportOutput).Msg("Exported")

	if exportOutput != "" {
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ Exported %d fasts to %s\n", len(doc.Fasts), exportOutput)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string, a *app) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	result, err := transfer.Import(commandContext(cmd), a.store, f, transfer.ImportOptions{
		SkipPreferences: importSkipPrefs,
	})
	if err != nil {
		return err
	}
	a.logger.Info().
		Int("fasts", result.Fasts).
		Int("preferences", result.Preferences).
		Str("file", args[0]).
		Msg("Imported")

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Imported %d fasts and %d preferences\n",
		result.Fasts, result.Preferences)
	return nil
}

func runTheme(cmd *cobra.Command, args []string, a *app) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		current := a.cfg.UI.Theme
		for _, name := range config.Themes {
			marker := "  "
			if name == current {
				marker = "▸ "
			}
			sample := tui.RenderBar(sampleSegments, 16, name)
			fmt.Fprintf(out, "%s%-10s %s\n", marker, name, sample)
		}
		return nil
	}

	name := args[0]
	if err := config.ValidatePreference(config.PrefTheme, name); err != nil {
		return err
	}
	if err := a.store.SetPreference(ctx, config.PrefTheme, name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Theme set to %s\n", name)
	return nil
}

// sampleSegments is a 16:8 day used to preview themes.
var sampleSegments = []timeline.Segment{
	{State: timeline.Active, Weight: 12.0 / 24},
	{State: timeline.Inactive, Weight: 8.0 / 24},
	{State: timeline.Active, Weight: 4.0 / 24},
}
