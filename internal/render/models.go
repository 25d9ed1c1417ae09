package render

import (
	"fmt"
	"time"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusDone      = "done"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Job is one render of a specific scenario version. Fingerprint is the
// identity used for caching: two requests for the same (project,
// version) join the same job instead of rendering twice.
type Job struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	ScenarioVersion int       `json:"scenario_version"`
	Fingerprint     string    `json:"fingerprint"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	OutputKey       string    `json:"output_key,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Active reports whether the job is still pending or running.
func (j *Job) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// Fingerprint derives the render identity for a scenario version.
func Fingerprint(projectID string, version int) string {
	return fmt.Sprintf("%s:v%d", projectID, version)
}
