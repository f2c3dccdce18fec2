package hooks

import (
	"context"
	"fmt"

	"refgate/internal/commitstatus"
	"refgate/internal/project"
)

// ProductionOnlyReference warns when a reference goes to production without
// ever having been deployed to a non-production stage.
func ProductionOnlyReference(releases commitstatus.ReleaseHistory) RefStatusFunc {
	return func(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]commitstatus.Status, error) {
		if stage == nil || !stage.Production {
			return nil, nil
		}

		deployed, err := releases.DeployedReferenceToNonProductionStage(ctx, proj.Name, reference)
		if err != nil {
			return nil, err
		}
		if deployed {
			return nil, nil
		}

		return []commitstatus.Status{{
			State:       commitstatus.StateProductionOnlyReference,
			Description: fmt.Sprintf("%s has not been deployed to a non-production stage.", reference),
		}}, nil
	}
}
