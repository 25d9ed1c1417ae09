package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cutroom/renderd/internal/compile"
)

const stderrTailBytes = 3000

// FFmpeg runs render operations through the ffmpeg and ffprobe
// binaries. It implements Engine.
type FFmpeg struct {
	bin      string
	probeBin string
	font     string
	logger   *slog.Logger
}

func NewFFmpeg(bin, probeBin string, logger *slog.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if probeBin == "" {
		probeBin = "ffprobe"
	}
	return &FFmpeg{
		bin:      bin,
		probeBin: probeBin,
		font:     defaultFont(),
		logger:   logger,
	}
}

// Trim cuts src down to [startSec, endSec) without re-encoding. Seeking
// happens before the input so a start past the end of file fails fast
// instead of producing an empty stream.
func (f *FFmpeg) Trim(ctx context.Context, src, out string, startSec, endSec float64) error {
	args := []string{"-y", "-ss", formatSec(startSec)}
	if endSec > 0 {
		args = append(args, "-to", formatSec(endSec))
	}
	args = append(args, "-i", src, "-c", "copy", out)
	return f.run(ctx, "trim", args)
}

// DrawText burns one styled text overlay into the video stream, audio
// copied through untouched.
func (f *FFmpeg) DrawText(ctx context.Context, src, out string, op compile.TextOverlayParams) error {
	filter := buildDrawtext(f.font, op)
	return f.run(ctx, "add_text_overlay", []string{
		"-y", "-i", src, "-vf", filter, "-c:a", "copy", out,
	})
}

// BurnSubtitles renders an SRT file into the video stream.
func (f *FFmpeg) BurnSubtitles(ctx context.Context, src, out, srtPath string) error {
	filter := fmt.Sprintf("subtitles='%s'", escapeFilterPath(srtPath))
	return f.run(ctx, "add_subtitles", []string{
		"-y", "-i", src, "-vf", filter, "-c:a", "copy", out,
	})
}

// Concat joins the inputs with the concat demuxer. The list file is
// written next to the output and removed afterwards.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no inputs")
	}

	var list strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("concat: resolve %s: %w", in, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}

	listPath := out + ".concat.txt"
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("concat: write list file: %w", err)
	}
	defer os.Remove(listPath)

	return f.run(ctx, "concat", []string{
		"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out,
	})
}

// Probe extracts stream metadata with ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, f.probeBin,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w: %s", path, err, tail(stderr.Bytes()))
	}
	return parseProbeOutput(stdout.Bytes())
}

func (f *FFmpeg) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		f.logger.Error("ffmpeg failed",
			"op", op,
			"error", err,
			"stderr", tail(stderr.Bytes()))
		return fmt.Errorf("ffmpeg %s: %w", op, err)
	}
	return nil
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTailBytes {
		s = s[len(s)-stderrTailBytes:]
	}
	return s
}

func formatSec(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var doc struct {
		Format  probeFormat   `json:"format"`
		Streams []probeStream `json:"streams"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	if doc.Format.Duration != "" {
		result.Duration, _ = strconv.ParseFloat(doc.Format.Duration, 64)
	}
	if doc.Format.BitRate != "" {
		result.Bitrate, _ = strconv.ParseInt(doc.Format.BitRate, 10, 64)
	}
	for _, s := range doc.Streams {
		if s.CodecType != "video" {
			continue
		}
		result.Width = s.Width
		result.Height = s.Height
		result.Codec = s.CodecName
		result.FrameRate = parseFrameRate(s.AvgFrameRate)
		if result.FrameRate == 0 {
			result.FrameRate = parseFrameRate(s.RFrameRate)
		}
		break
	}
	return result, nil
}

// parseFrameRate handles ffprobe's rational form, e.g. "30000/1001".
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
