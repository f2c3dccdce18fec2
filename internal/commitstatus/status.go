// Package commitstatus decides whether a reference is safe to treat as
// passing for a stage.
//
// A Resolver combines the CI status reported by a StatusProvider with the
// project's own deploy history and with ref_status hooks. The provider part
// of the answer is cached for versioned (immutable) references under a TTL
// derived from how fresh and how final the reported statuses are.
package commitstatus

import (
	"context"
	"errors"
	"time"

	"refgate/internal/history"
	"refgate/internal/project"
)

// Commit states. StateOldRelease and StateProductionOnlyReference are only
// produced by refgate itself.
const (
	StateSuccess                 = "success"
	StatePending                 = "pending"
	StateFailure                 = "failure"
	StateError                   = "error"
	StateMissing                 = "missing"
	StateOldRelease              = "Old Release"
	StateProductionOnlyReference = "Production Only Reference"
)

// ReferenceContext is the context of entries describing the reference itself
const ReferenceContext = "Reference"

// NoStatusDescription is reported when the provider knows the reference but
// no CI status has arrived yet.
const NoStatusDescription = "No status was reported for this reference."

// ErrReferenceNotFound is returned by a StatusProvider that has no record of
// the reference.
var ErrReferenceNotFound = errors.New("reference not found")

// Status is one status entry, reported by CI, by the deploy history or by a hook
type Status struct {
	State       string     `json:"state"`
	Description string     `json:"description,omitempty"`
	Context     string     `json:"context,omitempty"`
	TargetURL   string     `json:"target_url,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Result is the combined state of a reference and the entries it was derived from
type Result struct {
	State    string   `json:"state"`
	Statuses []Status `json:"statuses"`
}

// Passing reports whether the reference may be treated as green
func (r *Result) Passing() bool {
	return r.State == StateSuccess
}

// Display returns the entries to show for reference. A missing result has
// no entries of its own, so it gets a single Reference row.
func (r *Result) Display(reference string) []Status {
	if r.State == StateMissing && len(r.Statuses) == 0 {
		return []Status{{
			State:       StateMissing,
			Description: reference + " does not exist in the repository.",
			Context:     ReferenceContext,
		}}
	}
	return r.Statuses
}

// StatusProvider wraps the CI status API
type StatusProvider interface {
	// GetStatus returns the latest statuses for reference in repositoryPath
	// ("owner/repo"), or ErrReferenceNotFound.
	GetStatus(ctx context.Context, repositoryPath, reference string) (*Result, error)
}

// DeployRepository looks up past deploys
type DeployRepository interface {
	FindSucceededDeploys(ctx context.Context, project string, deployGroupIDs []int64, excludingDeployID int64) ([]history.DeployRecord, error)
}

// ReleaseHistory answers questions about where a project released a reference
type ReleaseHistory interface {
	DeployedReferenceToNonProductionStage(ctx context.Context, project, reference string) (bool, error)
}

// Hooks supplies plugin status entries for the ref_status event
type Hooks interface {
	RefStatuses(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]Status, error)
}

// severity ranks states; the most severe state of a result wins.
// Anything unlisted (missing, Production Only Reference, unknown hook
// states) ranks with pending.
func severity(state string) int {
	switch state {
	case StateSuccess:
		return 0
	case StateFailure:
		return 2
	case StateError, StateOldRelease:
		return 3
	default:
		return 1
	}
}

var severityStates = []string{StateSuccess, StatePending, StateFailure, StateError}

// MostSevere returns the overall state for a list of entries, seeded with
// seed (usually the provider's combined state). An empty list is missing.
// Entries without a state are ignored; if nothing carries a state the
// result is pending. Otherwise the result is one of success, pending,
// failure or error.
func MostSevere(seed string, statuses []Status) string {
	if len(statuses) == 0 {
		return StateMissing
	}

	level := -1
	if seed != "" {
		level = severity(seed)
	}

	for _, status := range statuses {
		if status.State == "" {
			continue
		}
		if s := severity(status.State); s > level {
			level = s
		}
	}

	if level < 0 {
		return StatePending
	}
	return severityStates[level]
}
