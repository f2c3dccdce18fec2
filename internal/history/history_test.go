package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()

	hist, err := NewHistory(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create history: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	return hist
}

func record(t *testing.T, hist *History, rec DeployRecord) int64 {
	t.Helper()

	id, err := hist.RecordDeploy(context.Background(), &rec)
	if err != nil {
		t.Fatalf("Failed to record deploy: %v", err)
	}
	return id
}

func TestHistory_RecordDeploy(t *testing.T) {
	hist := newTestHistory(t)

	id := record(t, hist, DeployRecord{
		Project:        "shop",
		StageID:        1,
		StageName:      "Production",
		Production:     true,
		Reference:      "v4.3",
		DeployGroupIDs: []int64{2, 1},
		JobStatus:      JobSucceeded,
	})
	if id == 0 {
		t.Error("Expected non-zero deploy ID")
	}

	deploys, err := hist.ListDeploys(context.Background(), "shop", 10)
	if err != nil {
		t.Fatalf("Failed to list deploys: %v", err)
	}
	if len(deploys) != 1 {
		t.Fatalf("Expected 1 deploy, got %d", len(deploys))
	}

	got := deploys[0]
	if got.Reference != "v4.3" || got.StageName != "Production" || !got.Production {
		t.Errorf("Unexpected deploy: %+v", got)
	}
	if len(got.DeployGroupIDs) != 2 || got.DeployGroupIDs[0] != 1 || got.DeployGroupIDs[1] != 2 {
		t.Errorf("Expected sorted deploy groups [1 2], got %v", got.DeployGroupIDs)
	}
	if got.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}
}

func TestHistory_RecordDeploy_InvalidStatus(t *testing.T) {
	hist := newTestHistory(t)

	_, err := hist.RecordDeploy(context.Background(), &DeployRecord{Project: "shop", JobStatus: "faild"})
	if err == nil {
		t.Fatal("Expected invalid job status to be rejected")
	}
}

func TestHistory_UpdateJobStatus(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	id := record(t, hist, DeployRecord{
		Project: "shop", StageID: 1, StageName: "Staging", Reference: "v1",
		DeployGroupIDs: []int64{1}, JobStatus: JobRunning,
	})

	if err := hist.UpdateJobStatus(ctx, id, JobSucceeded); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}

	deploys, err := hist.FindSucceededDeploys(ctx, "shop", []int64{1}, 0)
	if err != nil {
		t.Fatalf("FindSucceededDeploys failed: %v", err)
	}
	if len(deploys) != 1 {
		t.Errorf("Expected updated deploy to be found, got %d", len(deploys))
	}

	if err := hist.UpdateJobStatus(ctx, 999, JobFailed); err == nil {
		t.Error("Expected error for unknown deploy")
	}
	if err := hist.UpdateJobStatus(ctx, id, "bogus"); err == nil {
		t.Error("Expected error for invalid status")
	}
}

func TestHistory_FindSucceededDeploys(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	overlapping := record(t, hist, DeployRecord{
		Project: "shop", StageID: 2, StageName: "Production", Production: true,
		Reference: "v4.3", DeployGroupIDs: []int64{1, 5}, JobStatus: JobSucceeded, CreatedAt: base,
	})
	excluded := record(t, hist, DeployRecord{
		Project: "shop", StageID: 2, StageName: "Production", Production: true,
		Reference: "v4.4", DeployGroupIDs: []int64{1}, JobStatus: JobSucceeded, CreatedAt: base.Add(time.Hour),
	})
	record(t, hist, DeployRecord{
		Project: "shop", StageID: 1, StageName: "Staging",
		Reference: "v4.5", DeployGroupIDs: []int64{1}, JobStatus: JobFailed,
	})
	record(t, hist, DeployRecord{
		Project: "shop", StageID: 3, StageName: "Canary",
		Reference: "v4.6", DeployGroupIDs: []int64{9}, JobStatus: JobSucceeded,
	})
	record(t, hist, DeployRecord{
		Project: "other", StageID: 2, StageName: "Production",
		Reference: "v9.9", DeployGroupIDs: []int64{1}, JobStatus: JobSucceeded,
	})

	deploys, err := hist.FindSucceededDeploys(ctx, "shop", []int64{1, 2}, excluded)
	if err != nil {
		t.Fatalf("FindSucceededDeploys failed: %v", err)
	}

	if len(deploys) != 1 {
		t.Fatalf("Expected 1 deploy, got %d: %+v", len(deploys), deploys)
	}
	if deploys[0].ID != overlapping {
		t.Errorf("Expected deploy %d, got %d", overlapping, deploys[0].ID)
	}
	if !deploys[0].CreatedAt.Equal(base) {
		t.Errorf("Expected created_at %v, got %v", base, deploys[0].CreatedAt)
	}

	none, err := hist.FindSucceededDeploys(ctx, "shop", nil, 0)
	if err != nil {
		t.Fatalf("FindSucceededDeploys failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no deploys without deploy groups, got %d", len(none))
	}
}

func TestHistory_DeployedReferenceToNonProductionStage(t *testing.T) {
	hist := newTestHistory(t)
	ctx := context.Background()

	record(t, hist, DeployRecord{
		Project: "shop", StageID: 2, StageName: "Production", Production: true,
		Reference: "v1", DeployGroupIDs: []int64{1}, JobStatus: JobSucceeded,
	})
	record(t, hist, DeployRecord{
		Project: "shop", StageID: 1, StageName: "Staging",
		Reference: "v2", DeployGroupIDs: []int64{2}, JobStatus: JobSucceeded,
	})
	record(t, hist, DeployRecord{
		Project: "shop", StageID: 1, StageName: "Staging",
		Reference: "v3", DeployGroupIDs: []int64{2}, JobStatus: JobFailed,
	})

	testCases := []struct {
		reference string
		expected  bool
	}{
		{"v1", false},
		{"v2", true},
		{"v3", false},
		{"v4", false},
	}

	for _, tc := range testCases {
		t.Run(tc.reference, func(t *testing.T) {
			got, err := hist.DeployedReferenceToNonProductionStage(ctx, "shop", tc.reference)
			if err != nil {
				t.Fatalf("query failed: %v", err)
			}
			if got != tc.expected {
				t.Errorf("DeployedReferenceToNonProductionStage(%q) = %v, expected %v", tc.reference, got, tc.expected)
			}
		})
	}
}

func TestHistory_ListDeploys_Limit(t *testing.T) {
	hist := newTestHistory(t)

	for _, ref := range []string{"v1", "v2", "v3"} {
		record(t, hist, DeployRecord{
			Project: "shop", StageID: 1, StageName: "Staging",
			Reference: ref, DeployGroupIDs: []int64{1}, JobStatus: JobSucceeded,
		})
	}

	deploys, err := hist.ListDeploys(context.Background(), "shop", 2)
	if err != nil {
		t.Fatalf("ListDeploys failed: %v", err)
	}
	if len(deploys) != 2 {
		t.Fatalf("Expected 2 deploys, got %d", len(deploys))
	}
	if deploys[0].Reference != "v3" {
		t.Errorf("Expected newest first, got %q", deploys[0].Reference)
	}
}
