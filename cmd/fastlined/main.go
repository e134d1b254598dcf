// fastlined — the Fastline HTTP API server.
//
// Usage:
//
//	fastlined [flags]
//
// Flags:
//
//	--config   Path to configuration file (default: ~/.fastline/config.yaml)
//	--listen   TCP address to listen on (overrides server.listen_addr)
//	--db       Path to SQLite database file (overrides storage.path)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Mr-Dark-debug/fastline/internal/config"
	"github.com/Mr-Dark-debug/fastline/internal/database"
	"github.com/Mr-Dark-debug/fastline/internal/logging"
	"github.com/Mr-Dark-debug/fastline/internal/server"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to configuration file")
	listenAddr := flag.String("listen", "", "TCP listen address")
	dbPath := flag.String("db", "", "Path to SQLite database file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fastlined version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", *configPath).
		Msg("Starting fastlined")

	// Ensure the database directory exists
	dbDir := filepath.Dir(cfg.Storage.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Fatal().Err(err).Str("dir", dbDir).Msg("Failed to create database directory")
	}

	store, err := database.NewDBService(cfg.Storage.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()

	logger.Info().Str("path", cfg.Storage.Path).Msg("Database initialized")

	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		DefaultGoal:  cfg.Fasting.DefaultGoal,
		Location:     cfg.Location(),
		DayCacheSize: cfg.Server.DayCacheSize,
	}, store, logging.Component(logger, "server"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stored timezone and default_goal preferences are applied by Run.
	logger.Info().
		Str("addr", cfg.Server.ListenAddr).
		Str("config_timezone", cfg.Location().String()).
		Msgf("API: http://%s/api, metrics: http://%s/metrics", cfg.Server.ListenAddr, cfg.Server.ListenAddr)

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}

	logger.Info().Msg("fastlined stopped")
}
