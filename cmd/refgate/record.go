package main

import (
	"context"
	"fmt"
	"strconv"

	"refgate/internal/history"
	"refgate/internal/project"
	"refgate/internal/security"

	"github.com/spf13/cobra"
)

var (
	recordStatus string
	recordGroups []int64
)

var recordCmd = &cobra.Command{
	Use:   "record <project> <stage> <reference>",
	Short: "Record a deploy in the history database",
	Long: `Record that a reference was deployed to a stage.

The deploy covers the stage's configured deploy groups unless --groups is
given. Prints the new deploy id, which 'refgate finish' accepts.`,
	Example: `  refgate record shop Production v4.2 --status running
  refgate record shop Staging v4.3 --status succeeded --groups 1,3`,
	Args: cobra.ExactArgs(3),
	RunE: runRecord,
}

var finishCmd = &cobra.Command{
	Use:   "finish <deploy-id> <status>",
	Short: "Update the job status of a recorded deploy",
	Args:  cobra.ExactArgs(2),
	RunE:  runFinish,
}

func init() {
	recordCmd.Flags().StringVar(&recordStatus, "status", history.JobSucceeded, "Job status (pending, running, succeeded, failed, errored, cancelled)")
	recordCmd.Flags().Int64SliceVar(&recordGroups, "groups", nil, "Deploy group ids (defaults to the stage's deploy groups)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	projectName, stageName, reference := args[0], args[1], args[2]
	if err := security.ValidateReference(reference); err != nil {
		return fmt.Errorf("invalid reference: %w", err)
	}
	if !history.ValidJobStatus(recordStatus) {
		return fmt.Errorf("invalid job status %q", recordStatus)
	}

	_, projects, err := loadConfig()
	if err != nil {
		return err
	}

	proj, err := project.NewRegistry(projects).Get(projectName)
	if err != nil {
		return err
	}
	stage, ok := proj.Stage(stageName)
	if !ok {
		return fmt.Errorf("project '%s' has no stage '%s'", proj.Name, stageName)
	}

	groups := recordGroups
	if len(groups) == 0 {
		groups = stage.DeployGroupIDs
	}

	hist, err := history.NewHistory(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer hist.Close()

	id, err := hist.RecordDeploy(context.Background(), &history.DeployRecord{
		Project:        proj.Name,
		StageID:        stage.ID,
		StageName:      stage.Name,
		Production:     stage.Production,
		Reference:      reference,
		DeployGroupIDs: groups,
		JobStatus:      recordStatus,
	})
	if err != nil {
		return err
	}

	fmt.Println(id)
	return nil
}

func runFinish(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid deploy id %q", args[0])
	}

	hist, err := history.NewHistory(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer hist.Close()

	if err := hist.UpdateJobStatus(context.Background(), id, args[1]); err != nil {
		return err
	}

	fmt.Printf("Deploy %d is %s\n", id, args[1])
	return nil
}
