package compile

import (
	"fmt"
	"sort"

	"github.com/cutroom/renderd/internal/overlay"
	"github.com/cutroom/renderd/internal/scenario"
)

// Compile lowers a validated scenario into an ordered task list.
//
// Segments are processed in timeline order. Each video segment yields a
// trim, then one text overlay per intersecting scene overlay in
// declaration order, then at most one subtitle burn covering the cues
// that fall inside the segment window. A single concat joining every
// segment closes the plan.
//
// If any video segment references an asset that is not ready, Compile
// returns a BlockedError naming every such segment and no tasks.
func Compile(sc *scenario.Scenario, assets scenario.AssetMap, styles *overlay.Styles, defaultPreset string) ([]Task, error) {
	video := sc.VideoLayer()
	if video == nil || len(video.Segments) == 0 {
		return nil, fmt.Errorf("scenario has no video segments to render")
	}

	segments := make([]scenario.Segment, len(video.Segments))
	copy(segments, video.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartSec < segments[j].StartSec
	})

	var blocked []string
	for _, seg := range segments {
		if seg.AssetStatus != scenario.StatusReady {
			blocked = append(blocked, seg.ID)
		}
	}
	if len(blocked) > 0 {
		return nil, &BlockedError{SegmentIDs: blocked}
	}

	cues := overlay.MergeCues(sc)

	var tasks []Task
	inputs := make([]string, 0, len(segments))
	for _, seg := range segments {
		asset, ok := assets[seg.AssetID]
		if !ok {
			return nil, fmt.Errorf("segment %s: asset %s not resolved", seg.ID, seg.AssetID)
		}

		trimStart := seg.Params.TrimStart
		trimEnd := seg.Params.TrimEnd
		if trimEnd <= trimStart {
			trimStart = 0
			trimEnd = seg.Duration()
		}
		tasks = append(tasks, Task{
			Type:      TaskTrim,
			SegmentID: seg.ID,
			Trim: &TrimParams{
				AssetID:   seg.AssetID,
				AssetPath: asset.Path,
				StartSec:  trimStart,
				EndSec:    trimEnd,
			},
		})

		overlays, err := segmentOverlays(sc, seg, styles, defaultPreset)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, overlays...)

		if segCues := overlay.CuesInWindow(cues, seg.StartSec, seg.EndSec); len(segCues) > 0 {
			tasks = append(tasks, Task{
				Type:      TaskSubtitles,
				SegmentID: seg.ID,
				Subtitles: &SubtitleParams{Cues: segCues},
			})
		}

		inputs = append(inputs, seg.ID)
	}

	tasks = append(tasks, Task{
		Type:   TaskConcat,
		Concat: &ConcatParams{Inputs: inputs},
	})
	return tasks, nil
}

// segmentOverlays resolves the thesis overlays that intersect a
// segment, in scene declaration order, with windows rebased to
// segment-local time. Overlays belong to the timeline, not to a
// segment's scene_id back-reference, so every scene is considered;
// the time windows decide what lands on the segment.
func segmentOverlays(sc *scenario.Scenario, seg scenario.Segment, styles *overlay.Styles, defaultPreset string) ([]Task, error) {
	var tasks []Task
	for _, scene := range sc.Scenes {
		for _, ov := range scene.Overlays {
			if ov.EndSec <= seg.StartSec || ov.StartSec >= seg.EndSec {
				continue
			}
			op, err := overlay.ResolveThesis(ov, styles, defaultPreset)
			if err != nil {
				return nil, fmt.Errorf("segment %s: %w", seg.ID, err)
			}

			start := op.StartSec
			if start < seg.StartSec {
				start = seg.StartSec
			}
			end := op.EndSec
			if end > seg.EndSec {
				end = seg.EndSec
			}
			tasks = append(tasks, Task{
				Type:      TaskTextOverlay,
				SegmentID: seg.ID,
				Text: &TextOverlayParams{
					Text:     op.Text,
					Position: op.Position,
					StartSec: start - seg.StartSec,
					EndSec:   end - seg.StartSec,
					Preset:   op.Preset,
					Style:    op.Style,
				},
			})
		}
	}
	return tasks, nil
}
