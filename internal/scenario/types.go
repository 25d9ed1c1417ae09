// Package scenario defines the versioned timeline document (scenes and
// layers) produced by the scenario generator, and validates it before
// it may be compiled into render tasks.
package scenario

// OverlayFormat distinguishes the two text-overlay kinds. There is no
// default: every producer must declare which kind it means.
type OverlayFormat string

const (
	FormatThesis   OverlayFormat = "thesis"
	FormatSubtitle OverlayFormat = "subtitle"
)

// LayerType is the closed set of timeline track types.
type LayerType string

const (
	LayerVideo     LayerType = "video"
	LayerImage     LayerType = "image"
	LayerText      LayerType = "text"
	LayerSubtitle  LayerType = "subtitle"
	LayerAudio     LayerType = "audio"
	LayerMusic     LayerType = "music"
	LayerSFX       LayerType = "sfx"
	LayerEffects   LayerType = "effects"
	LayerOverlays  LayerType = "overlays"
	LayerGenerated LayerType = "generated"
)

// KnownLayerType reports whether t is one of the declared layer types.
func KnownLayerType(t LayerType) bool {
	switch t {
	case LayerVideo, LayerImage, LayerText, LayerSubtitle, LayerAudio,
		LayerMusic, LayerSFX, LayerEffects, LayerOverlays, LayerGenerated:
		return true
	}
	return false
}

// AssetSource describes where a segment's media comes from.
type AssetSource string

const (
	SourceUploaded  AssetSource = "uploaded"
	SourceSuggested AssetSource = "suggested"
	SourceGenerated AssetSource = "generated"
)

// AssetStatus is the readiness lifecycle of a segment's media.
type AssetStatus string

const (
	StatusReady      AssetStatus = "ready"
	StatusPending    AssetStatus = "pending"
	StatusGenerating AssetStatus = "generating"
	StatusError      AssetStatus = "error"
)

// Scenario is the full versioned timeline for one project. Identity is
// (project scenario, version); any edit bumps the version.
type Scenario struct {
	Version  int      `json:"version" yaml:"version"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
	Scenes   []Scene  `json:"scenes" yaml:"scenes"`
	Layers   []Layer  `json:"layers" yaml:"layers"`
}

type Metadata struct {
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	TotalDurationSec float64  `json:"total_duration_sec,omitempty" yaml:"total_duration_sec,omitempty"`
	AspectRatio      string   `json:"aspect_ratio,omitempty" yaml:"aspect_ratio,omitempty"`
	AssetIDs         []string `json:"asset_ids,omitempty" yaml:"asset_ids,omitempty"`
}

type Scene struct {
	ID                string     `json:"id" yaml:"id"`
	StartSec          float64    `json:"start_sec" yaml:"start_sec"`
	EndSec            float64    `json:"end_sec" yaml:"end_sec"`
	VisualDescription string     `json:"visual_description,omitempty" yaml:"visual_description,omitempty"`
	VoiceoverText     string     `json:"voiceover_text,omitempty" yaml:"voiceover_text,omitempty"`
	Overlays          []Overlay  `json:"overlays,omitempty" yaml:"overlays,omitempty"`
	Effects           []string   `json:"effects,omitempty" yaml:"effects,omitempty"`
	Transition        string     `json:"transition,omitempty" yaml:"transition,omitempty"`
	AssetRefs         []AssetRef `json:"asset_refs,omitempty" yaml:"asset_refs,omitempty"`
}

type AssetRef struct {
	AssetID string `json:"asset_id,omitempty" yaml:"asset_id,omitempty"`
	MediaID string `json:"media_id,omitempty" yaml:"media_id,omitempty"`
	Usage   string `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// Overlay is a timed text element on a scene. FontSize 0 means "use the
// style preset's size".
type Overlay struct {
	Text      string        `json:"text" yaml:"text"`
	Position  string        `json:"position" yaml:"position"`
	StartSec  float64       `json:"start_sec" yaml:"start_sec"`
	EndSec    float64       `json:"end_sec" yaml:"end_sec"`
	Format    OverlayFormat `json:"format" yaml:"format"`
	FontSize  int           `json:"font_size,omitempty" yaml:"font_size,omitempty"`
	FontStyle string        `json:"font_style,omitempty" yaml:"font_style,omitempty"`
}

type Layer struct {
	ID       string    `json:"id" yaml:"id"`
	Type     LayerType `json:"type" yaml:"type"`
	Order    int       `json:"order" yaml:"order"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Segment is an atomic time-bounded unit on a layer. SceneID is a
// lookup reference, not ownership.
type Segment struct {
	ID               string        `json:"id" yaml:"id"`
	StartSec         float64       `json:"start_sec" yaml:"start_sec"`
	EndSec           float64       `json:"end_sec" yaml:"end_sec"`
	AssetID          string        `json:"asset_id,omitempty" yaml:"asset_id,omitempty"`
	AssetSource      AssetSource   `json:"asset_source,omitempty" yaml:"asset_source,omitempty"`
	AssetStatus      AssetStatus   `json:"asset_status,omitempty" yaml:"asset_status,omitempty"`
	SceneID          string        `json:"scene_id,omitempty" yaml:"scene_id,omitempty"`
	Params           SegmentParams `json:"params,omitempty" yaml:"params,omitempty"`
	GenerationTaskID string        `json:"generation_task_id,omitempty" yaml:"generation_task_id,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndSec - s.StartSec
}

// ResolvedAsset is one entry of the asset map handed to validation and
// compilation: the local media path plus readiness state, snapshotted
// for the duration of one compile+execute cycle.
type ResolvedAsset struct {
	ID     string
	Path   string
	Status AssetStatus
}

// AssetMap maps asset IDs to resolved media.
type AssetMap map[string]ResolvedAsset

// VideoLayer returns the first video-type layer, or nil.
func (sc *Scenario) VideoLayer() *Layer {
	for i := range sc.Layers {
		if sc.Layers[i].Type == LayerVideo {
			return &sc.Layers[i]
		}
	}
	return nil
}

// SubtitleLayers returns all subtitle-type layers in declaration order.
func (sc *Scenario) SubtitleLayers() []Layer {
	var out []Layer
	for _, l := range sc.Layers {
		if l.Type == LayerSubtitle {
			out = append(out, l)
		}
	}
	return out
}
