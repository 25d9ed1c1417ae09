// Package compile lowers a validated scenario into a flat, ordered list
// of render tasks. The task list is a pure function of the scenario and
// the asset map; it never touches the filesystem or the render engine.
package compile

import (
	"github.com/cutroom/renderd/internal/overlay"
)

// TaskType names a render operation the executor knows how to run.
type TaskType string

const (
	TaskTrim        TaskType = "trim"
	TaskTextOverlay TaskType = "add_text_overlay"
	TaskSubtitles   TaskType = "add_subtitles"
	TaskConcat      TaskType = "concat"
)

// Task is one step of a render plan. SegmentID ties per-segment tasks
// back to the segment they transform; it is empty for the final concat.
type Task struct {
	Type      TaskType `json:"type"`
	SegmentID string   `json:"segment_id,omitempty"`
	Trim      *TrimParams        `json:"trim,omitempty"`
	Text      *TextOverlayParams `json:"text,omitempty"`
	Subtitles *SubtitleParams    `json:"subtitles,omitempty"`
	Concat    *ConcatParams      `json:"concat,omitempty"`
}

// TrimParams cuts a source asset down to the segment window.
type TrimParams struct {
	AssetID   string  `json:"asset_id"`
	AssetPath string  `json:"asset_path"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
}

// TextOverlayParams draws one thesis overlay onto a trimmed segment.
// Times are relative to the segment, not the scenario timeline.
type TextOverlayParams struct {
	Text     string           `json:"text"`
	Position string           `json:"position"`
	StartSec float64          `json:"start_sec"`
	EndSec   float64          `json:"end_sec"`
	Preset   string           `json:"preset"`
	Style    overlay.DrawSpec `json:"style"`
}

// SubtitleParams burns the cues intersecting a segment. Cue times are
// relative to the segment.
type SubtitleParams struct {
	Cues []overlay.Cue `json:"cues"`
}

// ConcatParams joins every processed segment, in timeline order, into
// the final output. Inputs are segment IDs.
type ConcatParams struct {
	Inputs []string `json:"inputs"`
}
