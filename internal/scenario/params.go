package scenario

import "fmt"

// SegmentParams carries the raw per-segment parameter fields as they
// appear on the wire. Which fields are meaningful is decided by the
// owning layer's type; TypedParams selects the closed variant and
// rejects segments on layers of unknown type. Opaque maps never travel
// past this point.
type SegmentParams struct {
	Text      string  `json:"text,omitempty" yaml:"text,omitempty"`
	Position  string  `json:"position,omitempty" yaml:"position,omitempty"`
	FontSize  int     `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	FontStyle string  `json:"font_style,omitempty" yaml:"font_style,omitempty"`
	TrimStart float64 `json:"trim_start,omitempty" yaml:"trim_start,omitempty"`
	TrimEnd   float64 `json:"trim_end,omitempty" yaml:"trim_end,omitempty"`
	Volume    float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	Query     string  `json:"query,omitempty" yaml:"query,omitempty"`
}

// TextParams parameterizes a text-layer segment.
type TextParams struct {
	Text      string
	Position  string
	FontSize  int
	FontStyle string
}

// SubtitleParams parameterizes one subtitle cue segment.
type SubtitleParams struct {
	Text string
}

// TrimParams parameterizes a video/image segment: the window of the
// source asset to use. Zero values mean "whole segment window".
type TrimParams struct {
	TrimStart float64
	TrimEnd   float64
}

// AudioParams parameterizes audio, music and sfx segments.
type AudioParams struct {
	Volume float64
}

// GenerationParams parameterizes a generated-layer placeholder segment.
type GenerationParams struct {
	Query string
}

// TypedParams converts raw segment params into the closed variant for
// the given layer type. Unknown layer types are an error, not a
// pass-through.
func TypedParams(t LayerType, p SegmentParams) (any, error) {
	switch t {
	case LayerVideo, LayerImage:
		return TrimParams{TrimStart: p.TrimStart, TrimEnd: p.TrimEnd}, nil
	case LayerText, LayerOverlays:
		return TextParams{Text: p.Text, Position: p.Position, FontSize: p.FontSize, FontStyle: p.FontStyle}, nil
	case LayerSubtitle:
		return SubtitleParams{Text: p.Text}, nil
	case LayerAudio, LayerMusic, LayerSFX:
		return AudioParams{Volume: p.Volume}, nil
	case LayerEffects:
		// Effects segments carry no parameters of their own.
		return struct{}{}, nil
	case LayerGenerated:
		return GenerationParams{Query: p.Query}, nil
	default:
		return nil, fmt.Errorf("unknown layer type %q", t)
	}
}
