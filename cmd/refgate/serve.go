package main

import (
	"context"
	"fmt"

	"refgate/internal/history"
	"refgate/internal/project"
	"refgate/internal/server"

	"github.com/spf13/cobra"
)

var (
	logFile  string
	logLevel string
	host     string
	port     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status server",
	Long: `Start the HTTP server answering commit status lookups.

The server also receives GitHub push webhooks and expires the cached status of
pushed tags.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logFile, "log", defaults.LogFile, "Path to log file")
	serveCmd.Flags().StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&host, "host", defaults.Host, "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", defaults.Port, "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}

	logger, logFileHandle, err := setupLogging(logFile, level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting refgate", "version", version)

	cfg, projects, err := loadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return err
	}
	logger.Info("Configuration validated successfully", "count", len(projects))

	if len(projects) == 0 {
		logger.Warn("No projects configured in config file")
		logger.Warn("The server will start but every status request will return 404 until projects are added")
	}

	logger.Info("Initializing history database", "db", dbPath)
	hist, err := history.NewHistory(dbPath)
	if err != nil {
		logger.Error("Failed to initialize history database", "error", err)
		return fmt.Errorf("failed to initialize history database: %w", err)
	}

	store, closeStore, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		hist.Close()
		logger.Error("Failed to open status cache", "error", err)
		return err
	}
	defer closeStore()

	resolver, err := newResolver(cfg, projects, hist, store, logger)
	if err != nil {
		hist.Close()
		return err
	}

	srv := server.NewServer(project.NewRegistry(projects), resolver, hist, logger, false)
	defer srv.Close()

	logger.Info("Starting HTTP server", "host", host, "port", port)
	if err := srv.Start(host, port); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
