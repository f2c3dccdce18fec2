package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"refgate/internal/commitstatus"
	"refgate/internal/project"
	"refgate/pkg/cmdutil"
)

// Command runs an external program for every ref_status event.
//
// The program sees REFGATE_PROJECT, REFGATE_REPOSITORY, REFGATE_STAGE
// (empty without a stage), REFGATE_PRODUCTION and REFGATE_REFERENCE in its
// environment and must print a JSON array of status entries on stdout.
// Empty output means no entries.
func Command(hook project.Hook) (RefStatusFunc, error) {
	parts, err := cmdutil.ParseCommandString(hook.Command)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(hook.Timeout) * time.Second

	return func(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]commitstatus.Status, error) {
		env := append(os.Environ(),
			"REFGATE_PROJECT="+proj.Name,
			"REFGATE_REPOSITORY="+proj.Repository,
			"REFGATE_REFERENCE="+reference,
		)
		if stage != nil {
			env = append(env,
				"REFGATE_STAGE="+stage.Name,
				fmt.Sprintf("REFGATE_PRODUCTION=%t", stage.Production),
			)
		} else {
			env = append(env, "REFGATE_STAGE=", "REFGATE_PRODUCTION=false")
		}

		result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{Timeout: timeout, Env: env}, parts)
		if err != nil {
			if result != nil && len(result.Stderr) > 0 {
				return nil, fmt.Errorf("%s: %w: %s", cmdutil.FormatCommand(parts), err, strings.TrimSpace(string(result.Stderr)))
			}
			return nil, fmt.Errorf("%s: %w", cmdutil.FormatCommand(parts), err)
		}

		output := strings.TrimSpace(string(result.Stdout))
		if output == "" {
			return nil, nil
		}

		var statuses []commitstatus.Status
		if err := json.Unmarshal([]byte(output), &statuses); err != nil {
			return nil, fmt.Errorf("%s printed invalid status JSON: %w", cmdutil.FormatCommand(parts), err)
		}

		return statuses, nil
	}, nil
}

// Setup registers the built-in hooks and every project's configured
// commands. Built-ins come first so their entries precede command output.
func Setup(registry *Registry, releases commitstatus.ReleaseHistory, productionOnlyWarning bool, projects map[string]*project.Project) error {
	if productionOnlyWarning {
		registry.Register("production_only_reference", ProductionOnlyReference(releases))
	}

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		proj := projects[name]
		for _, hook := range proj.Hooks {
			fn, err := Command(hook)
			if err != nil {
				return fmt.Errorf("project '%s' hook '%s': %w", name, hook.Name, err)
			}
			registry.Register(name+"/"+hook.Name, onlyFor(proj.Name, fn))
		}
	}

	return nil
}

// onlyFor restricts a project's command hook to that project's references
func onlyFor(projectName string, fn RefStatusFunc) RefStatusFunc {
	return func(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]commitstatus.Status, error) {
		if proj == nil || proj.Name != projectName {
			return nil, nil
		}
		return fn(ctx, proj, stage, reference)
	}
}
