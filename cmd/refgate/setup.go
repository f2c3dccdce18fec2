package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"refgate/internal/cache"
	"refgate/internal/commitstatus"
	"refgate/internal/github"
	"refgate/internal/history"
	"refgate/internal/hooks"
	"refgate/internal/project"
	"refgate/pkg/fileutil"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

var (
	configFile string
	dbPath     string
)

// loadConfig finds and loads projects.yaml, searching the default locations
// when --config is not given
func loadConfig() (*project.Config, map[string]*project.Project, error) {
	path := configFile
	if path == "" {
		searchPaths := fileutil.DefaultConfigPaths("projects.yaml")
		path = fileutil.SearchPathsOptional(searchPaths)
		if path == "" {
			return nil, nil, fmt.Errorf("no configuration file found in %s; use --config to specify one",
				strings.Join(searchPaths, ", "))
		}
	}

	cfg, projects, err := project.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration %s: %w", path, err)
	}
	return cfg, projects, nil
}

// openStore connects to Redis when configured, otherwise keeps the cache in
// process memory. The returned closer is never nil.
func openStore(ctx context.Context, cfg *project.Config, logger *slog.Logger) (cache.Store, func() error, error) {
	if cfg.Cache.RedisAddr == "" {
		logger.Info("Using in-memory status cache")
		return cache.NewMemoryStore(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	store := cache.NewRedisStore(client, cfg.Cache.KeyPrefix, logger)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
	}

	logger.Info("Using redis status cache", "addr", cfg.Cache.RedisAddr, "db", cfg.Cache.RedisDB)
	return store, client.Close, nil
}

// newResolver wires the GitHub provider, deploy history, hooks and store
func newResolver(cfg *project.Config, projects map[string]*project.Project, hist *history.History, store cache.Store, logger *slog.Logger) (*commitstatus.Resolver, error) {
	provider, err := github.NewStatusClient(defaults.GitHubToken, cfg.GitHub.APIURL, cfg.GitHub.RequestsPerSecond)
	if err != nil {
		return nil, err
	}

	registry := hooks.NewRegistry(logger)
	if err := hooks.Setup(registry, hist, cfg.ProductionOnlyReferenceWarning, projects); err != nil {
		return nil, fmt.Errorf("failed to register ref_status hooks: %w", err)
	}
	logger.Info("Registered ref_status hooks", "hooks", registry.Names())

	return commitstatus.NewResolver(provider, hist, hist, registry, store, logger), nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string, level slog.Level) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), file, nil
}

// cliLogger logs warnings and errors to stderr so stdout stays parseable
func cliLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func parseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}
