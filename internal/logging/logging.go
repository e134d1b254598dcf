// Package logging builds the zerolog loggers shared by the Fastline binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the configured level and format.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(Level(cfg.Level))

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Level maps a config level name to a zerolog level. Empty or unknown
// names fall back to info.
func Level(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// NewFile opens cfg.File for appending and logs there. The terminal UI owns
// stdout, so it logs through this instead of New.
func NewFile(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	// Console formatting in a file only adds escape codes.
	fileCfg := cfg
	fileCfg.Format = "json"
	return New(fileCfg, f), f, nil
}

// Component derives a sub-logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
