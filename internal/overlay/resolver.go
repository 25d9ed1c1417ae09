package overlay

import (
	"fmt"
	"sort"

	"github.com/cutroom/renderd/internal/scenario"
)

// TextOp is a resolved thesis overlay: preset styling applied, ready
// for the compiler to turn into a drawtext operation.
type TextOp struct {
	Text     string
	Position string
	StartSec float64
	EndSec   float64
	Style    DrawSpec
	Preset   string
}

// Cue is one subtitle line with its display window.
type Cue struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

// ResolveThesis applies preset styling to a scene overlay. An
// overlay-level font size or style takes precedence over the preset.
func ResolveThesis(ov scenario.Overlay, styles *Styles, preset string) (TextOp, error) {
	if ov.Format != scenario.FormatThesis {
		return TextOp{}, fmt.Errorf("overlay format %q cannot be resolved as thesis", ov.Format)
	}
	name := preset
	if ov.FontStyle != "" {
		name = ov.FontStyle
	}
	spec, ok := styles.Lookup(name)
	if !ok {
		return TextOp{}, fmt.Errorf("unknown style preset %q", name)
	}
	if ov.FontSize > 0 {
		spec.FontSize = ov.FontSize
	}
	return TextOp{
		Text:     ov.Text,
		Position: ov.Position,
		StartSec: ov.StartSec,
		EndSec:   ov.EndSec,
		Style:    spec,
		Preset:   name,
	}, nil
}

// MergeCues collapses every subtitle layer into a single cue list
// ordered by start time. Segments with empty text are skipped.
func MergeCues(sc *scenario.Scenario) []Cue {
	var cues []Cue
	for _, layer := range sc.SubtitleLayers() {
		for _, seg := range layer.Segments {
			if seg.Params.Text == "" {
				continue
			}
			cues = append(cues, Cue{
				StartSec: seg.StartSec,
				EndSec:   seg.EndSec,
				Text:     seg.Params.Text,
			})
		}
	}
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].StartSec < cues[j].StartSec
	})
	return cues
}

// CuesInWindow returns the merged cues that intersect [start, end),
// rebased so times are relative to the window start. Cues are clamped
// to the window edges.
func CuesInWindow(cues []Cue, start, end float64) []Cue {
	var out []Cue
	for _, c := range cues {
		if c.EndSec <= start || c.StartSec >= end {
			continue
		}
		s := c.StartSec
		if s < start {
			s = start
		}
		e := c.EndSec
		if e > end {
			e = end
		}
		out = append(out, Cue{StartSec: s - start, EndSec: e - start, Text: c.Text})
	}
	return out
}
