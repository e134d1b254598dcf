// Fastline TUI — interactive month calendar of fasting timelines.
//
// Usage:
//
//	fastline-tui [flags]
//
// Flags:
//
//	--config   Path to configuration file (default: ~/.fastline/config.yaml)
//	--db       Path to SQLite database file (overrides storage.path)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/logging"
	"github.com/Mr-Dark-debug/fastline/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to configuration file")
	dbPath := flag.String("db", "", "Path to SQLite database file (overrides storage.path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}

	// The terminal belongs to the UI, so logs go to a file.
	logger, logFile, err := logging.NewFile(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	store, err := database.NewDBService(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open database at %s: %v", cfg.Storage.Path, err)
	}
	defer store.Close()

	prefs, err := store.Preferences(context.Background())
	if err != nil {
		log.Fatalf("Failed to read preferences: %v", err)
	}
	if err := cfg.ApplyPreferences(prefs); err != nil {
		logger.Warn().Err(err).Msg("Ignoring invalid stored preferences")
	}

	logger.Info().Str("db", cfg.Storage.Path).Str("timezone", cfg.Location().String()).Msg("Starting TUI")

	model := tui.NewModel(store, tui.Options{
		Location:    cfg.Location(),
		DefaultGoal: cfg.Fasting.DefaultGoal,
		Theme:       cfg.UI.Theme,
		Logger:      logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("TUI exited with error")
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
