package engine

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/cutroom/renderd/internal/compile"
)

const positionMargin = 50

// positionExpr maps a named position to drawtext x/y expressions with a
// fixed margin from the frame edge.
func positionExpr(position string) string {
	m := positionMargin
	switch position {
	case "top_left":
		return fmt.Sprintf("x=%d:y=%d", m, m)
	case "top_center":
		return fmt.Sprintf("x=(w-text_w)/2:y=%d", m)
	case "top_right":
		return fmt.Sprintf("x=w-text_w-%d:y=%d", m, m)
	case "center":
		return "x=(w-text_w)/2:y=(h-text_h)/2"
	case "bottom_left":
		return fmt.Sprintf("x=%d:y=h-th-%d", m, m)
	case "bottom_center":
		return fmt.Sprintf("x=(w-text_w)/2:y=h-th-%d", m)
	case "bottom_right":
		return fmt.Sprintf("x=w-text_w-%d:y=h-th-%d", m, m)
	default: // absent position centers the text
		return "x=(w-text_w)/2:y=(h-text_h)/2"
	}
}

// escapeDrawtext escapes the characters drawtext treats as syntax.
func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ":", `\:`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return s
}

// escapeFilterPath escapes a file path for use inside a filter argument
// such as subtitles='...'.
func escapeFilterPath(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, ":", `\:`)
	return s
}

// buildDrawtext assembles the full drawtext filter for one overlay.
func buildDrawtext(font string, op compile.TextOverlayParams) string {
	parts := []string{
		fmt.Sprintf("drawtext=fontfile='%s'", font),
		fmt.Sprintf("text='%s'", escapeDrawtext(op.Text)),
		fmt.Sprintf("fontsize=%d", op.Style.FontSize),
		fmt.Sprintf("fontcolor=%s", op.Style.FontColor),
		positionExpr(op.Position),
	}

	if op.Style.Shadow {
		parts = append(parts, "shadowx=2", "shadowy=2", "shadowcolor=black@0.8")
	}

	if op.Style.BorderColor != "" && op.Style.BorderWidth > 0 {
		parts = append(parts,
			fmt.Sprintf("borderw=%d", op.Style.BorderWidth),
			fmt.Sprintf("bordercolor=%s", op.Style.BorderColor),
		)
	}

	switch op.Style.Background {
	case "":
	case "dark":
		parts = append(parts, "box=1", "boxcolor=black@0.55", "boxborderw=12")
	case "light":
		parts = append(parts, "box=1", "boxcolor=white@0.55", "boxborderw=12")
	default:
		// Raw ffmpeg color spec, e.g. "black@0.7".
		parts = append(parts, "box=1", fmt.Sprintf("boxcolor=%s", op.Style.Background), "boxborderw=12")
	}

	parts = append(parts, fmt.Sprintf("enable='between(t,%g,%g)'", op.StartSec, op.EndSec))
	return strings.Join(parts, ":")
}

// defaultFont returns a system font that covers Latin and Cyrillic.
func defaultFont() string {
	if runtime.GOOS == "darwin" {
		arial := "/System/Library/Fonts/Supplemental/Arial.ttf"
		if _, err := os.Stat(arial); err == nil {
			return arial
		}
		return "/System/Library/Fonts/Helvetica.ttc"
	}
	return "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
}
