package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"refgate/internal/commitstatus"
	"refgate/internal/history"
	"refgate/internal/project"
	"refgate/internal/security"

	"github.com/spf13/cobra"
)

var (
	checkStage          string
	checkDeployID       int64
	checkRequirePassing bool
)

var checkCmd = &cobra.Command{
	Use:   "check <project> <reference>",
	Short: "Resolve the commit status of a reference",
	Long: `Resolve the combined commit status of a reference and print it as JSON.

With --stage the deploy history of that stage is consulted too. With
--require-passing the command fails unless the state is success, which makes
it usable as a deploy gate in scripts.`,
	Example: `  refgate check shop v4.2 --stage Production
  refgate check shop master --require-passing`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkStage, "stage", "s", "", "Stage to evaluate the reference for")
	checkCmd.Flags().Int64Var(&checkDeployID, "deploy-id", 0, "Deploy being evaluated, excluded from the history lookup")
	checkCmd.Flags().BoolVar(&checkRequirePassing, "require-passing", false, "Exit with an error unless the state is success")
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	proj, err := project.NewRegistry(projects).Get(projectName)
	if err != nil {
		return err
	}

	var stage *project.Stage
	if checkStage != "" {
		var ok bool
		if stage, ok = proj.Stage(checkStage); !ok {
			return fmt.Errorf("project '%s' has no stage '%s'", proj.Name, checkStage)
		}
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

	result, err := resolver.Resolve(ctx, commitstatus.Request{
		Project:   proj,
		Stage:     stage,
		Reference: reference,
		DeployID:  checkDeployID,
	})
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(map[string]interface{}{
		"project":   proj.Name,
		"reference": reference,
		"state":     result.State,
		"passing":   result.Passing(),
		"statuses":  result.Display(reference),
	}); err != nil {
		return err
	}

	if checkRequirePassing && !result.Passing() {
		return fmt.Errorf("%s is %s", reference, result.State)
	}
	return nil
}
