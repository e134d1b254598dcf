package main

import (
	"fmt"
	"sort"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var prefUnset bool

var prefCmd = &cobra.Command{
	Use:   "pref [KEY [VALUE]]",
	Short: "List, show, set or remove stored preferences",
	Long: `Stored preferences override the config file in the CLI, the TUI and
fastlined. Known keys are theme, default_goal and timezone.`,
	Example: `  fastline pref
  fastline pref timezone Europe/Berlin
  fastline pref default_goal 18h
  fastline pref --unset timezone`,
	Args: cobra.MaximumNArgs(2),
	RunE: withApp(runPref),
}

func init() {
	prefCmd.Flags().BoolVar(&prefUnset, "unset", false, "Remove KEY so the config file value applies again")
	rootCmd.AddCommand(prefCmd)
}

func runPref(cmd *cobra.Command, args []string, a *app) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if prefUnset {
		if len(args) != 1 {
			return fmt.Errorf("--unset takes exactly one KEY")
		}
		if err := a.store.DeletePreference(ctx, args[0]); err != nil {
			return err
		}
		a.logger.Info().Str("key", args[0]).Msg("Preference removed")
		fmt.Fprintf(out, "Removed %s\n", args[0])
		return nil
	}

	switch len(args) {
	case 0:
		prefs, err := a.store.Preferences(ctx)
		if err != nil {
			return err
		}
		if len(prefs) == 0 {
			fmt.Fprintln(out, "No stored preferences.")
			return nil
		}
		keys := make([]string, 0, len(prefs))
		for k := range prefs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		bold := color.New(color.Bold)
		for _, k := range keys {
			bold.Fprintf(out, "%-14s", k)
			fmt.Fprintf(out, " %s\n", prefs[k])
		}
		return nil

	case 1:
		v, ok, err := a.store.GetPreference(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("preference %q is not set", args[0])
		}
		fmt.Fprintln(out, v)
		return nil

	default:
		key, value := args[0], args[1]
		if err := config.ValidatePreference(key, value); err != nil {
			return err
		}
		if err := a.store.SetPreference(ctx, key, value); err != nil {
			return err
		}
		a.logger.Info().Str("key", key).Str("value", value).Msg("Preference set")
		fmt.Fprintf(out, "%s set to %s\n", key, value)
		return nil
	}
}
