package scenario

import (
	"fmt"
	"sort"
)

// ValidationError is one structural or business-rule violation found in
// a scenario document. Validation never touches the media engine.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Positions is the closed vocabulary for overlay placement. Unknown
// values are rejected rather than silently defaulted.
var Positions = map[string]bool{
	"top_left":      true,
	"top_center":    true,
	"top_right":     true,
	"center":        true,
	"bottom_left":   true,
	"bottom_center": true,
	"bottom_right":  true,
}

// durationTolerance is the slack allowed between the declared total
// duration and what the video-layer segments sum to.
const durationTolerance = 0.1

// Validate checks a scenario against the supplied asset map and returns
// every violation found. An empty result means the scenario may be
// compiled. Pure function: no side effects, no I/O.
func Validate(sc *Scenario, assets AssetMap) []ValidationError {
	var errs []ValidationError

	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if sc.Version < 1 {
		add("version", "version must be >= 1")
	}
	if sc.Metadata.Name == "" {
		add("metadata.name", "name is required")
	}
	if len(sc.Scenes) == 0 && len(sc.Layers) == 0 {
		add("", "scenario must have at least one scene or layer")
		return errs
	}

	sceneIDs := make(map[string]bool, len(sc.Scenes))
	for _, scene := range sc.Scenes {
		if scene.ID == "" {
			add("scenes", "scene id is required")
			continue
		}
		if sceneIDs[scene.ID] {
			add("scenes."+scene.ID, "duplicate scene id")
		}
		sceneIDs[scene.ID] = true

		if scene.StartSec < 0 {
			add("scenes."+scene.ID, "start_sec must be >= 0")
		}
		if scene.StartSec >= scene.EndSec {
			add("scenes."+scene.ID, "start_sec must be < end_sec")
		}

		for i, ov := range scene.Overlays {
			field := fmt.Sprintf("scenes.%s.overlays[%d]", scene.ID, i)
			validateOverlay(ov, field, add)
		}
	}

	// Scenes are a flat partition of the timeline: any overlap between
	// two scene windows is an authoring error.
	ordered := make([]Scene, len(sc.Scenes))
	copy(ordered, sc.Scenes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartSec < ordered[j].StartSec })
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].EndSec > ordered[i].StartSec {
			add("scenes", "scenes overlap: %s and %s", ordered[i-1].ID, ordered[i].ID)
		}
	}

	videoTotal := 0.0
	videoSegments := 0
	for _, layer := range sc.Layers {
		if !KnownLayerType(layer.Type) {
			add("layers."+layer.ID, "unknown layer type %q", layer.Type)
			continue
		}
		for _, seg := range layer.Segments {
			field := fmt.Sprintf("layers.%s.segments.%s", layer.ID, seg.ID)

			if seg.StartSec < 0 {
				add(field, "start_sec must be >= 0")
			}
			if seg.StartSec >= seg.EndSec {
				add(field, "start_sec must be < end_sec")
			}
			if seg.SceneID != "" && !sceneIDs[seg.SceneID] {
				add(field, "scene_id %q not found", seg.SceneID)
			}
			if _, err := TypedParams(layer.Type, seg.Params); err != nil {
				add(field, "%v", err)
			}

			if layer.Type == LayerVideo {
				videoTotal += seg.Duration()
				videoSegments++
				// Suggested and generated segments may still be waiting
				// for their media; only a segment claiming to be ready
				// must name an asset.
				if seg.AssetID == "" && (seg.AssetSource == SourceUploaded || seg.AssetStatus == StatusReady) {
					add(field, "video segment requires asset_id")
				}
			}

			// Everything that is not generated must resolve against
			// the project's asset store right now.
			if seg.AssetID != "" && seg.AssetSource != SourceGenerated {
				if _, ok := assets[seg.AssetID]; !ok {
					add(field, "asset_id %q not in project assets", seg.AssetID)
				}
			}

			if layer.Type == LayerSubtitle && seg.Params.Text == "" {
				add(field, "subtitle segment requires text")
			}
		}
	}

	if vl := sc.VideoLayer(); vl != nil && len(vl.Segments) == 0 {
		add("layers."+vl.ID, "video layer has no segments")
	}

	if sc.Metadata.TotalDurationSec > 0 && videoSegments > 0 {
		diff := sc.Metadata.TotalDurationSec - videoTotal
		if diff < -durationTolerance || diff > durationTolerance {
			add("metadata.total_duration_sec",
				"declared total %.2fs does not match video segment sum %.2fs",
				sc.Metadata.TotalDurationSec, videoTotal)
		}
	}

	return errs
}

func validateOverlay(ov Overlay, field string, add func(string, string, ...any)) {
	switch ov.Format {
	case FormatThesis:
		// ok
	case FormatSubtitle:
		// Subtitles exist only as subtitle-type layers; an overlay
		// claiming the subtitle format is unsupported input.
		add(field, "format \"subtitle\" is not supported on overlays; use a subtitle layer")
	case "":
		add(field, "format is required (thesis)")
	default:
		add(field, "unknown overlay format %q", ov.Format)
	}

	if ov.Position != "" && !Positions[ov.Position] {
		add(field, "unknown position %q", ov.Position)
	}
	if ov.StartSec < 0 {
		add(field, "start_sec must be >= 0")
	}
	if ov.EndSec <= ov.StartSec {
		add(field, "end_sec must be > start_sec")
	}
}
