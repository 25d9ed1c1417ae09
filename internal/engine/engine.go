// Package engine runs compiled render tasks against ffmpeg. The
// Engine interface covers the individual media operations; Executor
// walks a task list and chains their intermediate files.
package engine

import (
	"context"

	"github.com/cutroom/renderd/internal/compile"
)

// Engine is the set of media operations the executor can dispatch.
type Engine interface {
	Trim(ctx context.Context, src, out string, startSec, endSec float64) error
	DrawText(ctx context.Context, src, out string, op compile.TextOverlayParams) error
	BurnSubtitles(ctx context.Context, src, out, srtPath string) error
	Concat(ctx context.Context, inputs []string, out string) error
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

// ProbeResult is the media metadata extracted from a source file.
type ProbeResult struct {
	Duration  float64
	Width     int
	Height    int
	Codec     string
	Bitrate   int64
	FrameRate float64
}
