package commitstatus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"refgate/internal/history"
	"refgate/internal/refversion"
)

// oldReleaseStatuses warns when a production stage is about to receive a
// version older than one its deploy groups already run.
func (r *Resolver) oldReleaseStatuses(ctx context.Context, req Request) ([]Status, error) {
	if req.Stage == nil || !req.Stage.Production {
		return nil, nil
	}
	if !refversion.IsVersioned(req.Reference) {
		return nil, nil
	}

	deployed, err := r.releases.DeployedReferenceToNonProductionStage(ctx, req.Project.Name, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to check non-production deploys of %s: %w", req.Reference, err)
	}
	if deployed {
		return nil, nil
	}

	deploys, err := r.deploys.FindSucceededDeploys(ctx, req.Project.Name, req.Stage.DeployGroupIDs, req.DeployID)
	if err != nil {
		return nil, fmt.Errorf("failed to find deploys sharing deploy groups with %s: %w", req.Stage.Name, err)
	}

	return OldReleaseStatuses(req.Reference, deploys), nil
}

// OldReleaseStatuses returns a single "Old Release" entry naming every
// succeeded deploy whose version is strictly newer than reference, or nil.
// Versions are listed in ascending order, followed by the distinct stages
// that deployed them in the same order.
func OldReleaseStatuses(reference string, deploys []history.DeployRecord) []Status {
	stagesByRef := make(map[string]map[string]bool)
	for _, deploy := range deploys {
		if !deploy.Succeeded() || !refversion.Newer(deploy.Reference, reference) {
			continue
		}
		if stagesByRef[deploy.Reference] == nil {
			stagesByRef[deploy.Reference] = make(map[string]bool)
		}
		stagesByRef[deploy.Reference][deploy.StageName] = true
	}

	if len(stagesByRef) == 0 {
		return nil
	}

	refs := make([]string, 0, len(stagesByRef))
	for ref := range stagesByRef {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		cmp, _ := refversion.Compare(refs[i], refs[j])
		if cmp != 0 {
			return cmp < 0
		}
		return refs[i] < refs[j]
	})

	var stageNames []string
	seen := make(map[string]bool)
	for _, ref := range refs {
		names := make([]string, 0, len(stagesByRef[ref]))
		for name := range stagesByRef[ref] {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				stageNames = append(stageNames, name)
			}
		}
	}

	return []Status{{
		State: StateOldRelease,
		Description: fmt.Sprintf("%s was deployed to deploy groups in this stage by %s",
			strings.Join(refs, ", "), strings.Join(stageNames, ", ")),
	}}
}
