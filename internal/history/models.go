package history

import "time"

// Job statuses of a deploy. Only JobSucceeded deploys count as released.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobErrored   = "errored"
	JobCancelled = "cancelled"
)

var validJobStatuses = map[string]bool{
	JobPending:   true,
	JobRunning:   true,
	JobSucceeded: true,
	JobFailed:    true,
	JobErrored:   true,
	JobCancelled: true,
}

// DeployRecord represents a single deploy of a reference to a stage
type DeployRecord struct {
	ID             int64     `json:"id"`
	Project        string    `json:"project"`
	StageID        int64     `json:"stage_id"`
	StageName      string    `json:"stage_name"`
	Production     bool      `json:"production"`
	Reference      string    `json:"reference"`
	DeployGroupIDs []int64   `json:"deploy_group_ids"`
	JobStatus      string    `json:"job_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Succeeded reports whether the deploy finished successfully
func (d *DeployRecord) Succeeded() bool {
	return d.JobStatus == JobSucceeded
}

// ValidJobStatus reports whether status is a known job status
func ValidJobStatus(status string) bool {
	return validJobStatuses[status]
}
