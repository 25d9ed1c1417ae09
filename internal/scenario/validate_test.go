package scenario

import (
	"strings"
	"testing"
)

func validScenario() *Scenario {
	return &Scenario{
		Version: 1,
		Metadata: Metadata{
			Name:             "Test",
			TotalDurationSec: 10,
			AspectRatio:      "9:16",
		},
		Scenes: []Scene{
			{
				ID:       "scene_1",
				StartSec: 0,
				EndSec:   10,
				Overlays: []Overlay{
					{Text: "Hook", Position: "top_center", StartSec: 1, EndSec: 3, Format: FormatThesis},
				},
			},
		},
		Layers: []Layer{
			{
				ID:    "video_1",
				Type:  LayerVideo,
				Order: 0,
				Segments: []Segment{
					{ID: "seg_1", StartSec: 0, EndSec: 10, AssetID: "a1", AssetSource: SourceUploaded, AssetStatus: StatusReady, SceneID: "scene_1"},
				},
			},
			{
				ID:    "sub_1",
				Type:  LayerSubtitle,
				Order: 1,
				Segments: []Segment{
					{ID: "cue_1", StartSec: 0, EndSec: 2, Params: SegmentParams{Text: "hello"}},
				},
			},
		},
	}
}

func testAssets() AssetMap {
	return AssetMap{
		"a1": {ID: "a1", Path: "/media/a1.mp4", Status: StatusReady},
	}
}

func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return true
		}
	}
	return false
}

func TestValidate_OK(t *testing.T) {
	errs := Validate(validScenario(), testAssets())
	if len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no errors", errs)
	}
}

func TestValidate_EmptyScenario(t *testing.T) {
	sc := &Scenario{Version: 1, Metadata: Metadata{Name: "x"}}
	errs := Validate(sc, nil)
	if !hasError(errs, "at least one scene or layer") {
		t.Errorf("Validate() = %v, want empty-scenario error", errs)
	}
}

func TestValidate_BadTimeWindows(t *testing.T) {
	sc := validScenario()
	sc.Scenes[0].StartSec = 10
	sc.Scenes[0].EndSec = 5

	errs := Validate(sc, testAssets())
	if !hasError(errs, "start_sec must be < end_sec") {
		t.Errorf("Validate() = %v, want time window error", errs)
	}
}

func TestValidate_NegativeStart(t *testing.T) {
	sc := validScenario()
	sc.Layers[0].Segments[0].StartSec = -1

	errs := Validate(sc, testAssets())
	if !hasError(errs, "start_sec must be >= 0") {
		t.Errorf("Validate() = %v, want negative start error", errs)
	}
}

func TestValidate_SceneOverlap(t *testing.T) {
	sc := validScenario()
	sc.Metadata.TotalDurationSec = 0
	sc.Scenes = []Scene{
		{ID: "s1", StartSec: 0, EndSec: 6},
		{ID: "s2", StartSec: 5, EndSec: 10},
	}

	errs := Validate(sc, testAssets())
	if !hasError(errs, "scenes overlap") {
		t.Errorf("Validate() = %v, want overlap error", errs)
	}
}

func TestValidate_UnknownSceneRef(t *testing.T) {
	sc := validScenario()
	sc.Layers[0].Segments[0].SceneID = "ghost"

	errs := Validate(sc, testAssets())
	if !hasError(errs, `scene_id "ghost" not found`) {
		t.Errorf("Validate() = %v, want scene ref error", errs)
	}
}

func TestValidate_UnresolvedAsset(t *testing.T) {
	sc := validScenario()
	sc.Layers[0].Segments[0].AssetID = "missing"

	errs := Validate(sc, testAssets())
	if !hasError(errs, `asset_id "missing" not in project assets`) {
		t.Errorf("Validate() = %v, want unresolved asset error", errs)
	}
}

func TestValidate_GeneratedAssetNotRequired(t *testing.T) {
	sc := validScenario()
	sc.Layers[0].Segments[0].AssetID = ""
	sc.Layers[0].Segments[0].AssetSource = SourceGenerated
	sc.Layers[0].Segments[0].AssetStatus = StatusPending

	errs := Validate(sc, testAssets())
	if len(errs) != 0 {
		t.Errorf("Validate() = %v, generated segment without asset_id should pass", errs)
	}
}

func TestValidate_SuggestedPendingAssetNotRequired(t *testing.T) {
	sc := validScenario()
	sc.Layers[0].Segments[0].AssetID = ""
	sc.Layers[0].Segments[0].AssetSource = SourceSuggested
	sc.Layers[0].Segments[0].AssetStatus = StatusPending
	sc.Layers[0].Segments[0].Params.Query = "city skyline"

	errs := Validate(sc, testAssets())
	if len(errs) != 0 {
		t.Errorf("Validate() = %v, pending suggested segment should pass", errs)
	}
}

func TestValidate_ReadySegmentRequiresAsset(t *testing.T) {
	sc := validScenario()
	sc.Layers[0].Segments[0].AssetID = ""
	sc.Layers[0].Segments[0].AssetSource = SourceSuggested
	sc.Layers[0].Segments[0].AssetStatus = StatusReady

	errs := Validate(sc, testAssets())
	if !hasError(errs, "video segment requires asset_id") {
		t.Errorf("Validate() = %v, want missing asset error", errs)
	}
}

func TestValidate_OverlayFormatRequired(t *testing.T) {
	sc := validScenario()
	sc.Scenes[0].Overlays[0].Format = ""

	errs := Validate(sc, testAssets())
	if !hasError(errs, "format is required") {
		t.Errorf("Validate() = %v, want missing format error", errs)
	}
}

func TestValidate_SubtitleFormatOnOverlayRejected(t *testing.T) {
	sc := validScenario()
	sc.Scenes[0].Overlays[0].Format = FormatSubtitle

	errs := Validate(sc, testAssets())
	if !hasError(errs, "not supported on overlays") {
		t.Errorf("Validate() = %v, want subtitle-format rejection", errs)
	}
}

func TestValidate_UnknownPosition(t *testing.T) {
	sc := validScenario()
	sc.Scenes[0].Overlays[0].Position = "middle_left"

	errs := Validate(sc, testAssets())
	if !hasError(errs, `unknown position "middle_left"`) {
		t.Errorf("Validate() = %v, want position error", errs)
	}
}

func TestValidate_UnknownLayerType(t *testing.T) {
	sc := validScenario()
	sc.Layers = append(sc.Layers, Layer{ID: "x", Type: "hologram", Segments: []Segment{
		{ID: "h1", StartSec: 0, EndSec: 1},
	}})

	errs := Validate(sc, testAssets())
	if !hasError(errs, `unknown layer type "hologram"`) {
		t.Errorf("Validate() = %v, want layer type error", errs)
	}
}

func TestValidate_DurationMismatch(t *testing.T) {
	sc := validScenario()
	sc.Metadata.TotalDurationSec = 12

	errs := Validate(sc, testAssets())
	if !hasError(errs, "does not match video segment sum") {
		t.Errorf("Validate() = %v, want duration mismatch error", errs)
	}
}

func TestValidate_DurationWithinTolerance(t *testing.T) {
	sc := validScenario()
	sc.Metadata.TotalDurationSec = 10.05

	errs := Validate(sc, testAssets())
	if len(errs) != 0 {
		t.Errorf("Validate() = %v, 0.05s slack should be tolerated", errs)
	}
}

func TestTypedParams(t *testing.T) {
	p := SegmentParams{Text: "hi", Position: "center", Volume: 0.5, TrimStart: 1, TrimEnd: 3, Query: "city at night"}

	if v, err := TypedParams(LayerText, p); err != nil {
		t.Errorf("text params: %v", err)
	} else if tp := v.(TextParams); tp.Text != "hi" || tp.Position != "center" {
		t.Errorf("text params = %+v", tp)
	}

	if v, err := TypedParams(LayerVideo, p); err != nil {
		t.Errorf("video params: %v", err)
	} else if tr := v.(TrimParams); tr.TrimStart != 1 || tr.TrimEnd != 3 {
		t.Errorf("trim params = %+v", tr)
	}

	if v, err := TypedParams(LayerMusic, p); err != nil {
		t.Errorf("music params: %v", err)
	} else if a := v.(AudioParams); a.Volume != 0.5 {
		t.Errorf("audio params = %+v", a)
	}

	if v, err := TypedParams(LayerGenerated, p); err != nil {
		t.Errorf("generated params: %v", err)
	} else if g := v.(GenerationParams); g.Query != "city at night" {
		t.Errorf("generation params = %+v", g)
	}

	if _, err := TypedParams("plasma", p); err == nil {
		t.Error("unknown layer type should be rejected")
	}
}
