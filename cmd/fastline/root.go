package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"

	configPath string
	dbPath     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fastline",
	Short: "Fastline - intermittent fasting tracker",
	Long: `Fastline records fasting periods and draws every calendar day as a
24-hour bar of fasting and eating time.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides storage.path)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles what every command that touches the database needs.
type app struct {
	cfg    *config.Config
	store  *database.DBService
	logger zerolog.Logger
	loc    *time.Location

	logFile io.Closer
}

// openApp loads configuration, sets up logging and opens the store.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	logger, logFile, err := setupLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	log.Logger = logger

	if cfg.Storage.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
			logFile.Close()
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	store, err := database.NewDBService(cfg.Storage.Path)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	prefs, err := store.Preferences(context.Background())
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, err
	}
	if err := cfg.ApplyPreferences(prefs); err != nil {
		logger.Warn().Err(err).Msg("Ignoring invalid stored preferences")
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		loc:     cfg.Location(),
		logFile: logFile,
	}

	logger.Debug().
		Str("version", version).
		Str("db", cfg.Storage.Path).
		Str("timezone", a.loc.String()).
		Msg("Fastline CLI ready")
	return a, nil
}

// Close releases the store and the log file.
func (a *app) Close() error {
	err := a.store.Close()
	if cerr := a.logFile.Close(); err == nil {
		err = cerr
	}
	return err
}

// withApp adapts a command body that needs an app into a cobra RunE.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.logger.Error().Err(err).Msg("Failed to close")
			}
		}()
		return fn(cmd, args, a)
	}
}

// setupLogger sends CLI logs to the configured file so stdout stays clean.
func setupLogger(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	logger, closer, err := logging.NewFile(cfg)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logging.Component(logger, "cli"), closer, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Fastline v%s (commit: %s, built: %s)\n", version, gitCommit, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
