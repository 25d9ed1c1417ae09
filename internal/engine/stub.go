package engine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/cutroom/renderd/internal/compile"
)

// Stub is an Engine that records calls and writes marker files instead
// of invoking ffmpeg. Tests use it to verify execution plans.
type Stub struct {
	mu    sync.Mutex
	Calls []string

	// FailOn makes the named operation return an error.
	FailOn string
	// ProbeResult is returned by Probe when set.
	ProbeResult *ProbeResult
}

func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) record(op, out string) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, op)
	fail := s.FailOn == op
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("stub: %s failed", op)
	}
	if out != "" {
		return os.WriteFile(out, []byte(op), 0o644)
	}
	return nil
}

// CallCount returns how many times op was dispatched.
func (s *Stub) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (s *Stub) Trim(ctx context.Context, src, out string, startSec, endSec float64) error {
	return s.record("trim", out)
}

func (s *Stub) DrawText(ctx context.Context, src, out string, op compile.TextOverlayParams) error {
	return s.record("add_text_overlay", out)
}

func (s *Stub) BurnSubtitles(ctx context.Context, src, out, srtPath string) error {
	return s.record("add_subtitles", out)
}

func (s *Stub) Concat(ctx context.Context, inputs []string, out string) error {
	return s.record("concat", out)
}

func (s *Stub) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if err := s.record("probe", ""); err != nil {
		return nil, err
	}
	if s.ProbeResult != nil {
		return s.ProbeResult, nil
	}
	return &ProbeResult{}, nil
}
