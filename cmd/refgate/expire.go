package main

import (
	"context"
	"fmt"

	"refgate/internal/history"
	"refgate/internal/project"
	"refgate/internal/security"

	"github.com/spf13/cobra"
)

var expireCmd = &cobra.Command{
	Use:   "expire <project> <reference>",
	Short: "Expire the cached commit status of a reference",
	Long: `Drop the cached commit status of a reference from the shared Redis cache.

An in-memory cache only lives inside a running server; use
DELETE /cache/<project>?ref=<reference> against that server instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runExpire,
}

func runExpire(cmd *cobra.Command, args []string) error {
	projectName, reference := args[0], args[1]
	if err := security.ValidateReference(reference); err != nil {
		return fmt.Errorf("invalid reference: %w", err)
	}

	logger := cliLogger()
	ctx := context.Background()

	cfg, projects, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is not configured; the in-memory cache can only be expired through the server")
	}

	proj, err := project.NewRegistry(projects).Get(projectName)
	if err != nil {
		return err
	}

	hist, err := history.NewHistory(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer hist.Close()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver, err := newResolver(cfg, projects, hist, store, logger)
	if err != nil {
		return err
	}

	if err := resolver.ExpireCache(ctx, proj, reference); err != nil {
		return err
	}

	fmt.Printf("Expired cached status of %s for %s\n", reference, proj.Name)
	return nil
}
