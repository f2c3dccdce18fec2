// Package hooks dispatches the ref_status event to registered callbacks.
//
// Callbacks run synchronously in registration order and their entries are
// appended verbatim after the provider and deploy history statuses.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"refgate/internal/commitstatus"
	"refgate/internal/project"
)

// RefStatus is the event fired while resolving a reference
const RefStatus = "ref_status"

// RefStatusFunc contributes zero or more status entries for a reference.
// stage may be nil.
type RefStatusFunc func(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]commitstatus.Status, error)

type registration struct {
	name string
	fn   RefStatusFunc
}

// Registry holds ref_status callbacks
type Registry struct {
	mu     sync.RWMutex
	hooks  []registration
	logger *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register appends a callback; name is used in logs and errors
func (r *Registry) Register(name string, fn RefStatusFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, registration{name: name, fn: fn})
}

// Names lists registered callbacks in firing order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.hooks))
	for i, hook := range r.hooks {
		names[i] = hook.name
	}
	return names
}

// RefStatuses fires the ref_status event and concatenates the results.
// The first failing callback aborts the event.
func (r *Registry) RefStatuses(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]commitstatus.Status, error) {
	r.mu.RLock()
	hooks := make([]registration, len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.RUnlock()

	var statuses []commitstatus.Status
	for _, hook := range hooks {
		entries, err := hook.fn(ctx, proj, stage, reference)
		if err != nil {
			r.logger.Error("ref_status hook failed", "hook", hook.name, "reference", reference, "error", err)
			return nil, fmt.Errorf("%s hook %q: %w", RefStatus, hook.name, err)
		}
		statuses = append(statuses, entries...)
	}

	return statuses, nil
}
