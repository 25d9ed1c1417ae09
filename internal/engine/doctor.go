package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const doctorCacheTTL = 5 * time.Minute

// Capabilities describes what the installed ffmpeg can do. The render
// service refuses plans that need a missing filter.
type Capabilities struct {
	FFmpegVersion string
	HasDrawtext   bool
	HasSubtitles  bool
	ProbedAt      time.Time
}

// Doctor probes the ffmpeg installation and caches the result so
// render jobs do not shell out on every submission.
type Doctor struct {
	bin    string
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewDoctor(bin string, logger *slog.Logger) *Doctor {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Doctor{bin: bin, logger: logger}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *Doctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < doctorCacheTTL {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness. A failed
// probe falls back to stale results when any exist.
func (d *Doctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.probe(ctx)
	if err != nil {
		d.logger.Warn("ffmpeg probe failed", "error", err)
		if d.cached != nil {
			d.logger.Info("returning stale capabilities")
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *Doctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

func (d *Doctor) probe(ctx context.Context) (*Capabilities, error) {
	version, err := d.runCapture(ctx, "-version")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}

	caps := &Capabilities{
		FFmpegVersion: firstLine(version),
		ProbedAt:      time.Now(),
	}

	filters, err := d.runCapture(ctx, "-hide_banner", "-filters")
	if err != nil {
		return nil, fmt.Errorf("list ffmpeg filters: %w", err)
	}
	caps.HasDrawtext = strings.Contains(filters, " drawtext ")
	caps.HasSubtitles = strings.Contains(filters, " subtitles ")
	return caps, nil
}

func (d *Doctor) runCapture(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.bin, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
