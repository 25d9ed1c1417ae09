// Package generate tracks and fulfills asset requests for segments
// that reference footage the project does not have yet. A polling
// runner fetches stock media for suggested segments and records the
// produced asset on the task.
package generate

import "time"

const (
	TaskTypeStockVideo = "stock_video"
	TaskTypeStockImage = "stock_image"

	TaskStatusPending    = "pending"
	TaskStatusGenerating = "generating"
	TaskStatusReady      = "ready"
	TaskStatusError      = "error"
)

// Task is one outstanding media request for a scenario segment. When
// it completes, AssetID names the produced asset; the next scenario
// save points the segment at it.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	SegmentID string    `json:"segment_id"`
	TaskType  string    `json:"task_type"`
	Query     string    `json:"query,omitempty"`
	AssetID   string    `json:"asset_id,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
