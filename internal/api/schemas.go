package api

import (
	"time"

	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/generate"
	"github.com/cutroom/renderd/internal/overlay"
	"github.com/cutroom/renderd/internal/render"
	"github.com/cutroom/renderd/internal/scenario"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	UptimeS   int64  `json:"uptime_s"`
	ServiceID string `json:"service_id"`
}

type StatusResponse struct {
	State          string              `json:"state"`
	LastError      string              `json:"last_error,omitempty"`
	ProjectsCount  int                 `json:"projects_count"`
	JobsRunning    int                 `json:"jobs_running"`
	ActiveJob      *RenderJobResponse  `json:"active_job,omitempty"`
	GeneratePaused bool                `json:"generate_paused"`
	Engine         *EngineInfoResponse `json:"engine,omitempty"`
}

type EngineInfoResponse struct {
	FFmpegVersion string `json:"ffmpeg_version"`
	HasDrawtext   bool   `json:"has_drawtext"`
	HasSubtitles  bool   `json:"has_subtitles"`
	LastProbeAt   string `json:"last_probe_at,omitempty"`
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type AssetResponse struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Filename    string  `json:"filename"`
	MediaType   string  `json:"media_type"`
	Source      string  `json:"source"`
	Status      string  `json:"status"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type ScenarioResponse struct {
	ProjectID string             `json:"project_id"`
	Scenario  *scenario.Scenario `json:"scenario"`
}

type SaveScenarioResponse struct {
	ProjectID     string `json:"project_id"`
	Version       int    `json:"version"`
	QueuedFetches int    `json:"queued_fetches"`
}

type StylePresetResponse struct {
	Name  string           `json:"name"`
	Style overlay.DrawSpec `json:"style"`
}

type StylesResponse struct {
	Presets []StylePresetResponse `json:"presets"`
}

type RenderRequest struct {
	Version int `json:"version,omitempty"`
}

type RenderJobResponse struct {
	ID              string `json:"id"`
	ProjectID       string `json:"project_id"`
	ScenarioVersion int    `json:"scenario_version"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	OutputKey       string `json:"output_key,omitempty"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type RenderJobsResponse struct {
	Jobs []RenderJobResponse `json:"jobs"`
}

type GenerateTaskResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	SegmentID string `json:"segment_id"`
	TaskType  string `json:"task_type"`
	Query     string `json:"query,omitempty"`
	AssetID   string `json:"asset_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type GenerateTasksResponse struct {
	Tasks []GenerateTaskResponse `json:"tasks"`
}

type ErrorResponse struct {
	Error      string                     `json:"error"`
	Code       string                     `json:"code,omitempty"`
	Details    []scenario.ValidationError `json:"details,omitempty"`
	SegmentIDs []string                   `json:"segment_ids,omitempty"`
}

func ProjectToResponse(p *assets.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func AssetToResponse(a *assets.Asset) AssetResponse {
	return AssetResponse{
		ID:          a.ID,
		ProjectID:   a.ProjectID,
		Filename:    a.Filename,
		MediaType:   a.MediaType,
		Source:      string(a.Source),
		Status:      string(a.Status),
		DurationSec: a.DurationSec,
		Width:       a.Width,
		Height:      a.Height,
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func RenderJobToResponse(j *render.Job) RenderJobResponse {
	return RenderJobResponse{
		ID:              j.ID,
		ProjectID:       j.ProjectID,
		ScenarioVersion: j.ScenarioVersion,
		Status:          j.Status,
		Progress:        j.Progress,
		OutputKey:       j.OutputKey,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       j.UpdatedAt.Format(time.RFC3339),
	}
}

func GenerateTaskToResponse(t *generate.Task) GenerateTaskResponse {
	return GenerateTaskResponse{
		ID:        t.ID,
		ProjectID: t.ProjectID,
		SegmentID: t.SegmentID,
		TaskType:  t.TaskType,
		Query:     t.Query,
		AssetID:   t.AssetID,
		Status:    t.Status,
		Error:     t.Error,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
}
