package commitstatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"refgate/internal/cache"
	"refgate/internal/project"
	"refgate/internal/refversion"
)

// Request identifies what to resolve. Stage may be nil; DeployID, when set,
// is the deploy being evaluated and is left out of the history lookup.
type Request struct {
	Project   *project.Project
	Stage     *project.Stage
	Reference string
	DeployID  int64
}

// Resolver produces the combined commit status of a reference
type Resolver struct {
	provider StatusProvider
	deploys  DeployRepository
	releases ReleaseHistory
	hooks    Hooks
	store    cache.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a resolver. hooks may be nil.
func NewResolver(provider StatusProvider, deploys DeployRepository, releases ReleaseHistory, hooks Hooks, store cache.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		deploys:  deploys,
		releases: releases,
		hooks:    hooks,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// CacheKey is the store key of a project's cached provider status
func CacheKey(projectName, reference string) string {
	return "commit_status/" + projectName + "/" + reference
}

// Resolve returns the combined status of req.Reference.
//
// Entries are ordered provider first, then the old release warning, then hook
// entries. A reference unknown to the provider resolves to missing without
// any further lookups. Errors from any collaborator are returned as is.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if req.Project == nil {
		return nil, fmt.Errorf("project is required")
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("reference is required")
	}

	provided, err := r.providerStatus(ctx, req.Project, req.Reference)
	if err != nil {
		return nil, err
	}

	if provided.State == StateMissing {
		return &Result{State: StateMissing, Statuses: []Status{}}, nil
	}

	statuses := make([]Status, 0, len(provided.Statuses)+1)
	statuses = append(statuses, provided.Statuses...)

	oldRelease, err := r.oldReleaseStatuses(ctx, req)
	if err != nil {
		return nil, err
	}
	statuses = append(statuses, oldRelease...)

	if r.hooks != nil {
		hookStatuses, err := r.hooks.RefStatuses(ctx, req.Project, req.Stage, req.Reference)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, hookStatuses...)
	}

	result := &Result{
		State:    MostSevere(provided.State, statuses),
		Statuses: statuses,
	}

	r.logger.Debug("resolved commit status",
		"project", req.Project.Name,
		"reference", req.Reference,
		"state", result.State,
		"statuses", len(result.Statuses))

	return result, nil
}

// ExpireCache drops the cached provider status of reference
func (r *Resolver) ExpireCache(ctx context.Context, proj *project.Project, reference string) error {
	if err := r.store.Delete(ctx, CacheKey(proj.Name, reference)); err != nil {
		return fmt.Errorf("failed to expire cached status of %s: %w", reference, err)
	}

	r.logger.Info("expired cached commit status", "project", proj.Name, "reference", reference)
	return nil
}

// providerStatus reads through the cache for versioned references only;
// mutable references always hit the provider.
func (r *Resolver) providerStatus(ctx context.Context, proj *project.Project, reference string) (Result, error) {
	expiry := func(result Result) time.Duration {
		return CacheDuration(result, r.now())
	}

	return cache.FetchIf(ctx, r.store, refversion.IsVersioned(reference), CacheKey(proj.Name, reference), expiry,
		func(ctx context.Context) (Result, error) {
			return r.fetchProviderStatus(ctx, proj, reference)
		})
}

func (r *Resolver) fetchProviderStatus(ctx context.Context, proj *project.Project, reference string) (Result, error) {
	provided, err := r.provider.GetStatus(ctx, proj.Repository, reference)
	if errors.Is(err, ErrReferenceNotFound) {
		return Result{State: StateMissing, Statuses: []Status{}}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch commit status of %s: %w", reference, err)
	}

	if len(provided.Statuses) == 0 {
		return Result{
			State: StatePending,
			Statuses: []Status{{
				State:       StatePending,
				Description: NoStatusDescription,
				Context:     ReferenceContext,
			}},
		}, nil
	}

	return *provided, nil
}
