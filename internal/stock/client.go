// Package stock finds and downloads stock footage for suggested
// segments. The HTTP client talks to a Pexels-compatible search API;
// the stub serves tests and keyless installs.
package stock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Media is one downloaded stock result.
type Media struct {
	Path        string
	Query       string
	MediaType   string
	DurationSec float64
	Width       int
	Height      int
}

// Client searches for and downloads stock media.
type Client interface {
	// FetchVideo searches for a clip matching query and downloads it
	// into destDir. Returns ErrNotFound when no result matches.
	FetchVideo(ctx context.Context, query string, maxDurationSec int, destDir string) (*Media, error)
	// FetchImage searches for a photo matching query.
	FetchImage(ctx context.Context, query string, destDir string) (*Media, error)
}

// ErrNotFound reports that no stock result matched any query variant.
var ErrNotFound = fmt.Errorf("no stock media found")

// StubClient writes placeholder files instead of calling a stock API.
// Used when no API token is configured.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) FetchVideo(ctx context.Context, query string, maxDurationSec int, destDir string) (*Media, error) {
	c.logger.Info("stock stub: video fetch requested", "query", query)
	return c.placeholder(query, "video", ".mp4", destDir)
}

func (c *StubClient) FetchImage(ctx context.Context, query string, destDir string) (*Media, error) {
	c.logger.Info("stock stub: image fetch requested", "query", query)
	return c.placeholder(query, "image", ".jpg", destDir)
}

func (c *StubClient) placeholder(query, mediaType, ext, destDir string) (*Media, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(destDir, fmt.Sprintf("stock_%s_%s%s", mediaType, querySlug(query), ext))
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		return nil, err
	}
	return &Media{Path: path, Query: query, MediaType: mediaType}, nil
}
