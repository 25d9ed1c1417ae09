package engine

import (
	"strings"
	"testing"

	"github.com/cutroom/renderd/internal/compile"
	"github.com/cutroom/renderd/internal/overlay"
)

func TestPositionExpr(t *testing.T) {
	cases := []struct {
		pos  string
		want string
	}{
		{"top_left", "x=50:y=50"},
		{"top_center", "x=(w-text_w)/2:y=50"},
		{"top_right", "x=w-text_w-50:y=50"},
		{"center", "x=(w-text_w)/2:y=(h-text_h)/2"},
		{"bottom_left", "x=50:y=h-th-50"},
		{"bottom_center", "x=(w-text_w)/2:y=h-th-50"},
		{"bottom_right", "x=w-text_w-50:y=h-th-50"},
		{"", "x=(w-text_w)/2:y=(h-text_h)/2"},
	}
	for _, tc := range cases {
		if got := positionExpr(tc.pos); got != tc.want {
			t.Errorf("positionExpr(%q) = %q, want %q", tc.pos, got, tc.want)
		}
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`it's a 1:1 test\`)
	want := `it\'s a 1\:1 test\\`
	if got != want {
		t.Errorf("escapeDrawtext = %q, want %q", got, want)
	}
}

func TestBuildDrawtextMinimal(t *testing.T) {
	op := compile.TextOverlayParams{
		Text:     "Hook",
		Position: "top_center",
		StartSec: 1,
		EndSec:   3,
		Style:    overlay.DrawSpec{FontColor: "white", Shadow: true, FontSize: 48},
	}
	got := buildDrawtext("/fonts/test.ttf", op)

	for _, want := range []string{
		"drawtext=fontfile='/fonts/test.ttf'",
		"text='Hook'",
		"fontsize=48",
		"fontcolor=white",
		"x=(w-text_w)/2:y=50",
		"shadowx=2:shadowy=2:shadowcolor=black@0.8",
		"enable='between(t,1,3)'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("filter missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "box=1") {
		t.Errorf("minimal style should not draw a box: %s", got)
	}
}

func TestBuildDrawtextBoxAndBorder(t *testing.T) {
	op := compile.TextOverlayParams{
		Text:     "Boxed",
		Position: "bottom_center",
		EndSec:   2,
		Style:    overlay.DrawSpec{FontColor: "white", Background: "dark", FontSize: 48},
	}
	got := buildDrawtext("/fonts/test.ttf", op)
	if !strings.Contains(got, "box=1:boxcolor=black@0.55:boxborderw=12") {
		t.Errorf("dark box missing: %s", got)
	}

	op.Style = overlay.DrawSpec{FontColor: "black", Background: "light", FontSize: 48}
	got = buildDrawtext("/fonts/test.ttf", op)
	if !strings.Contains(got, "boxcolor=white@0.55") {
		t.Errorf("light box missing: %s", got)
	}

	op.Style = overlay.DrawSpec{FontColor: "white", BorderWidth: 2, BorderColor: "black", FontSize: 48}
	got = buildDrawtext("/fonts/test.ttf", op)
	if !strings.Contains(got, "borderw=2:bordercolor=black") {
		t.Errorf("border missing: %s", got)
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"format": {"duration": "12.480000", "bit_rate": "1200000"},
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "avg_frame_rate": "30000/1001"}
		]
	}`)
	got, err := parseProbeOutput(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Duration != 12.48 || got.Width != 1920 || got.Height != 1080 || got.Codec != "h264" {
		t.Errorf("unexpected probe result: %+v", got)
	}
	if got.FrameRate < 29.9 || got.FrameRate > 30.0 {
		t.Errorf("frame rate = %v", got.FrameRate)
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := parseFrameRate("25/1"); got != 25 {
		t.Errorf("25/1 = %v", got)
	}
	if got := parseFrameRate("0/0"); got != 0 {
		t.Errorf("0/0 = %v", got)
	}
	if got := parseFrameRate("24"); got != 24 {
		t.Errorf("24 = %v", got)
	}
}
