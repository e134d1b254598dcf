package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/server"
	"github.com/Mr-Dark-debug/fastline/pkg/timeutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// now is the CLI's clock.
var now = time.Now

var (
	startGoal string
	startNote string
	startAt   string
	stopAt    string

	statusRemote bool

	listLimit     int
	listCompleted bool

	editStart     string
	editEnd       string
	editGoal      string
	editNote      string
	editClearNote bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin a fast",
	Example: `  fastline start
  fastline start --goal 18h --note "after dinner"
  fastline start --at 20:30`,
	Args: cobra.NoArgs,
	RunE: withApp(runStart),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "End the current fast",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStop),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current fast",
	Long: `Show the fast in progress. With --remote, ask the running fastlined
server for its counters instead.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded fasts, newest first",
	Args:  cobra.NoArgs,
	RunE:  withApp(runList),
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a fast",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runDelete),
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Correct the times, goal or note of a fast",
	Example: `  fastline edit 3f2a --start "2024-06-10 19:45"
  fastline edit 3f2a --end 07:30 --goal 14h
  fastline edit 3f2a --clear-note`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runEdit),
}

func init() {
	editCmd.Flags().StringVar(&editStart, "start", "", "New start time")
	editCmd.Flags().StringVar(&editEnd, "end", "", "New end time (completed fasts only)")
	editCmd.Flags().StringVar(&editGoal, "goal", "", "New goal, e.g. 16h; 0 removes it")
	editCmd.Flags().StringVar(&editNote, "note", "", "New note")
	editCmd.Flags().BoolVar(&editClearNote, "clear-note", false, "Remove the note")

	startCmd.Flags().StringVar(&startGoal, "goal", "", "Fasting goal, e.g. 16h or 18h30m (default from config)")
	startCmd.Flags().StringVar(&startNote, "note", "", "Free-form note")
	startCmd.Flags().StringVar(&startAt, "at", "", "Start time: HH:MM today, YYYY-MM-DD HH:MM or RFC3339 (default now)")

	stopCmd.Flags().StringVar(&stopAt, "at", "", "End time: HH:MM today, YYYY-MM-DD HH:MM or RFC3339 (default now)")

	statusCmd.Flags().BoolVar(&statusRemote, "remote", false, "Query the running API server")

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum results")
	listCmd.Flags().BoolVar(&listCompleted, "completed", false, "Only completed fasts")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, listCmd, editCmd, deleteCmd)
}

func runStart(cmd *cobra.Command, args []string, a *app) error {
	ctx := commandContext(cmd)

	start, err := parseWhen(startAt, now(), a.loc)
	if err != nil {
		return err
	}

	goal := a.cfg.Fasting.DefaultGoal
	if startGoal != "" {
		if goal, err = parseGoal(startGoal); err != nil {
			return err
		}
	}

	fast, err := a.store.StartFast(ctx, start, goal, startNote)
	if err != nil {
		return err
	}
	a.logger.Info().Str("id", fast.ID).Dur("goal", goal).Msg("Fast started")

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(out, "✓ Fast started at %s\n", timeutil.FormatTimestamp(fast.StartTime, a.loc))
	if fast.GoalMinutes > 0 {
		fmt.Fprintf(out, "  Goal: %s (until %s)\n",
			timeutil.FormatDuration(fast.Goal()),
			timeutil.FormatTimestamp(fast.StartTime.Add(fast.Goal()), a.loc))
	}
	fmt.Fprintf(out, "  ID:   %s\n", fast.ID)
	return nil
}

func runStop(cmd *cobra.Command, args []string, a *app) error {
	ctx := commandContext(cmd)

	end, err := parseWhen(stopAt, now(), a.loc)
	if err != nil {
		return err
	}

	fast, err := a.store.StopFast(ctx, end)
	if err != nil {
		return err
	}
	a.logger.Info().Str("id", fast.ID).Msg("Fast stopped")

	out := cmd.OutOrStdout()
	d := fast.Duration(end)
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(out, "✓ Fast stopped after %s\n", timeutil.FormatDuration(d))
	switch {
	case fast.GoalMinutes == 0:
	case fast.GoalReached(end):
		fmt.Fprintf(out, "  Goal of %s reached.\n", timeutil.FormatDuration(fast.Goal()))
	default:
		yellow := color.New(color.FgYellow)
		yellow.Fprintf(out, "  %s short of the %s goal.\n",
			timeutil.FormatDuration(fast.Goal()-d), timeutil.FormatDuration(fast.Goal()))
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusRemote {
		return runRemoteStatus(cmd)
	}
	return withApp(runLocalStatus)(cmd, args)
}

func runLocalStatus(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	fast, err := a.store.ActiveFast(commandContext(cmd))
	if err != nil {
		return err
	}
	if fast == nil {
		fmt.Fprintln(out, "Not fasting.")
		fmt.Fprintln(out, "  Start a fast with: fastline start")
		return nil
	}

	t := now()
	cyan := color.New(color.FgCyan, color.Bold)
	if fast.StartTime.After(t) {
		cyan.Fprintf(out, "Fast starts in %s\n", timeutil.FormatDuration(fast.StartTime.Sub(t)))
		fmt.Fprintf(out, "  Starts:  %s\n", timeutil.FormatTimestamp(fast.StartTime, a.loc))
	} else {
		cyan.Fprintf(out, "Fasting for %s\n", timeutil.FormatDuration(fast.Duration(t)))
		fmt.Fprintf(out, "  Started: %s (%s)\n",
			timeutil.FormatTimestamp(fast.StartTime, a.loc), timeutil.RelativeTime(fast.StartTime, t))
	}
	if fast.GoalMinutes > 0 {
		progress := fast.Progress(t)
		fmt.Fprintf(out, "  Goal:    %s  %s %3.0f%%\n",
			timeutil.FormatDuration(fast.Goal()), progressBar(progress, 20), progress*100)
		if fast.GoalReached(t) {
			color.New(color.FgGreen).Fprintln(out, "  Goal reached.")
		} else {
			fmt.Fprintf(out, "  Remaining: %s\n", timeutil.FormatDuration(fast.Goal()-fast.Duration(t)))
		}
	}
	if fast.Note != "" {
		fmt.Fprintf(out, "  Note:    %s\n", fast.Note)
	}
	return nil
}

// runRemoteStatus queries the API server's counters endpoint.
func runRemoteStatus(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := fmt.Sprintf("http://%s/api/metrics", cfg.Server.ListenAddr)

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	out := cmd.OutOrStdout()
	if err != nil {
		color.New(color.FgYellow).Fprintln(out, "⚠ fastlined is not running.")
		fmt.Fprintf(out, "  Start it with: fastlined\n")
		fmt.Fprintf(out, "  (tried: %s)\n", url)
		return fmt.Errorf("server unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fastlined at %s answered %s", url, resp.Status)
	}

	var counters server.Counters
	if err := json.NewDecoder(resp.Body).Decode(&counters); err != nil {
		return fmt.Errorf("failed to decode counters: %w", err)
	}

	color.New(color.FgGreen).Fprintln(out, "✓ fastlined is running.")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Requests:        %d\n", counters.Requests)
	fmt.Fprintf(out, "  Fasts started:   %d\n", counters.FastsStarted)
	fmt.Fprintf(out, "  Fasts stopped:   %d\n", counters.FastsStopped)
	fmt.Fprintf(out, "  Fasts imported:  %d\n", counters.FastsImported)
	fmt.Fprintf(out, "  Errors:          %d\n", counters.ErrorCount)
	fmt.Fprintf(out, "  Uptime:          %s\n", timeutil.FormatDuration(time.Duration(counters.Uptime)*time.Second))
	return nil
}

func runList(cmd *cobra.Command, args []string, a *app) error {
	fasts, err := a.store.QueryFasts(commandContext(cmd), database.FastFilter{
		Limit:         listLimit,
		OnlyCompleted: listCompleted,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(fasts) == 0 {
		fmt.Fprintln(out, "No fasts recorded.")
		return nil
	}

	t := now()
	bold := color.New(color.Bold)
	bold.Fprintf(out, "%-8s  %-16s  %-16s  %-9s  %-9s  %s\n", "ID", "START", "END", "DURATION", "GOAL", "NOTE")
	for _, f := range fasts {
		end := "ongoing"
		if f.EndTime != nil {
			end = timeutil.FormatTimestamp(*f.EndTime, a.loc)
		}
		goal := "-"
		if f.GoalMinutes > 0 {
			goal = timeutil.FormatDuration(f.Goal())
			if f.GoalReached(t) {
				goal += " ✓"
			}
		}
		fmt.Fprintf(out, "%-8s  %-16s  %-16s  %-9s  %-9s  %s\n",
			shortID(f.ID), timeutil.FormatTimestamp(f.StartTime, a.loc), end,
			timeutil.FormatDuration(f.Duration(t)), goal, f.Note)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string, a *app) error {
	if editStart == "" && editEnd == "" && editGoal == "" && editNote == "" && !editClearNote {
		return fmt.Errorf("nothing to change (use --start, --end, --goal, --note or --clear-note)")
	}

	ctx := commandContext(cmd)
	id, err := resolveID(cmd, a, args[0])
	if err != nil {
		return err
	}
	fast, err := a.store.GetFast(ctx, id)
	if err != nil {
		return err
	}

	t := now()
	if editStart != "" {
		if fast.StartTime, err = parseWhen(editStart, t, a.loc); err != nil {
			return err
		}
	}
	if editEnd != "" {
		if fast.Ongoing() {
			return fmt.Errorf("fast %s is ongoing; end it with: fastline stop --at %s", shortID(id), editEnd)
		}
		end, err := parseWhen(editEnd, t, a.loc)
		if err != nil {
			return err
		}
		fast.EndTime = &end
	}
	if editGoal != "" {
		goal, err := parseGoal(editGoal)
		if err != nil {
			return err
		}
		fast.GoalMinutes = int(goal / time.Minute)
	}
	switch {
	case editClearNote:
		fast.Note = ""
	case editNote != "":
		fast.Note = editNote
	}

	if err := a.store.UpdateFast(ctx, fast); err != nil {
		return err
	}
	a.logger.Info().Str("id", id).Msg("Fast updated")

	out := cmd.OutOrStdout()
	end := "ongoing"
	if fast.EndTime != nil {
		end = timeutil.FormatTimestamp(*fast.EndTime, a.loc)
	}
	color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ Updated fast %s\n", shortID(id))
	fmt.Fprintf(out, "  %s → %s  %s\n",
		timeutil.FormatTimestamp(fast.StartTime, a.loc), end, timeutil.FormatDuration(fast.Duration(t)))
	if fast.GoalMinutes > 0 {
		fmt.Fprintf(out, "  Goal: %s\n", timeutil.FormatDuration(fast.Goal()))
	}
	if fast.Note != "" {
		fmt.Fprintf(out, "  Note: %s\n", fast.Note)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string, a *app) error {
	id, err := resolveID(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.store.DeleteFast(commandContext(cmd), id); err != nil {
		return err
	}
	a.logger.Info().Str("id", id).Msg("Fast deleted")
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted fast %s\n", id)
	return nil
}

// resolveID expands the short ID shown by list into a full fast ID.
func resolveID(cmd *cobra.Command, a *app, prefix string) (string, error) {
	ctx := commandContext(cmd)
	if _, err := a.store.GetFast(ctx, prefix); err == nil {
		return prefix, nil
	}

	fasts, err := a.store.QueryFasts(ctx, database.FastFilter{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, f := range fasts {
		if strings.HasPrefix(f.ID, prefix) {
			matches = append(matches, f.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", prefix, database.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ID prefix %q is ambiguous (%d fasts)", prefix, len(matches))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func progressBar(progress float64, width int) string {
	filled := int(max(0, min(progress, 1)) * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
