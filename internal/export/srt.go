// Package export turns resolved subtitle cues into on-disk artifacts
// for the render engine, and guards the filenames and directories they
// are written to.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cutroom/renderd/internal/overlay"
)

// GenerateSRT renders cues as a SubRip document. Cues are written in
// the order given; callers are expected to pass a merged, sorted list.
func GenerateSRT(cues []overlay.Cue) string {
	var lines []string
	for i, cue := range cues {
		lines = append(lines,
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%s --> %s", secToTimestamp(cue.StartSec), secToTimestamp(cue.EndSec)),
			cue.Text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// WriteSRT writes the cues to path as a SubRip file.
func WriteSRT(path string, cues []overlay.Cue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create srt directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateSRT(cues)), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// secToTimestamp formats seconds as a SubRip timestamp, HH:MM:SS,mmm.
func secToTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMs := int(math.Round(sec * 1000.0))
	ms := totalMs % 1000
	totalSeconds := totalMs / 1000
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}
