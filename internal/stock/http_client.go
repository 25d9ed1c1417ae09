package stock

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FetchError represents an error response from the stock API.
type FetchError struct {
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("stock search failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
// Other client errors (4xx) are considered permanent.
func (e *FetchError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// HTTPClient searches a Pexels-compatible API and downloads results.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.pexels.com"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type videoFile struct {
	Link  string `json:"link"`
	Width int    `json:"width"`
}

type videoResult struct {
	Duration   float64     `json:"duration"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	VideoFiles []videoFile `json:"video_files"`
}

type photoResult struct {
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Src    map[string]string `json:"src"`
}

func (c *HTTPClient) FetchVideo(ctx context.Context, query string, maxDurationSec int, destDir string) (*Media, error) {
	for _, attempt := range fallbackQueries(query) {
		params := url.Values{
			"query":       {attempt},
			"per_page":    {"5"},
			"orientation": {"landscape"},
		}
		if maxDurationSec > 0 {
			params.Set("max_duration", strconv.Itoa(maxDurationSec))
		}

		var result struct {
			Videos []videoResult `json:"videos"`
		}
		if err := c.search(ctx, "/videos/search", params, &result); err != nil {
			return nil, err
		}
		if len(result.Videos) == 0 {
			continue
		}
		if attempt != query {
			c.logger.Info("stock: no video for query, using fallback",
				"query", query, "fallback", attempt)
		}

		video := result.Videos[0]
		link := pickVideoFile(video.VideoFiles)
		if link == "" {
			continue
		}
		path := filepath.Join(destDir, fmt.Sprintf("stock_video_%s_%d.mp4", querySlug(query), time.Now().Unix()))
		if err := c.download(ctx, link, path); err != nil {
			return nil, err
		}
		return &Media{
			Path:        path,
			Query:       query,
			MediaType:   "video",
			DurationSec: video.Duration,
			Width:       video.Width,
			Height:      video.Height,
		}, nil
	}
	return nil, ErrNotFound
}

func (c *HTTPClient) FetchImage(ctx context.Context, query string, destDir string) (*Media, error) {
	for _, attempt := range fallbackQueries(query) {
		params := url.Values{
			"query":       {attempt},
			"per_page":    {"5"},
			"orientation": {"landscape"},
		}

		var result struct {
			Photos []photoResult `json:"photos"`
		}
		if err := c.search(ctx, "/v1/search", params, &result); err != nil {
			return nil, err
		}
		if len(result.Photos) == 0 {
			continue
		}

		photo := result.Photos[0]
		link := photo.Src["large"]
		if link == "" {
			link = photo.Src["original"]
		}
		if link == "" {
			continue
		}
		path := filepath.Join(destDir, fmt.Sprintf("stock_image_%s_%d.jpg", querySlug(query), time.Now().Unix()))
		if err := c.download(ctx, link, path); err != nil {
			return nil, err
		}
		return &Media{
			Path:      path,
			Query:     query,
			MediaType: "image",
			Width:     photo.Width,
			Height:    photo.Height,
		}, nil
	}
	return nil, ErrNotFound
}

func (c *HTTPClient) search(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("X-Request-Id", generateRequestID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stock search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FetchError{StatusCode: resp.StatusCode, Body: string(body[:min(len(body), 4096)])}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode stock response: %w", err)
	}
	return nil
}

func (c *HTTPClient) download(ctx context.Context, link, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &FetchError{StatusCode: resp.StatusCode, Body: "download rejected"}
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("write download: %w", err)
	}
	return nil
}

// pickVideoFile prefers the largest file that still fits in 1080p.
func pickVideoFile(files []videoFile) string {
	if len(files) == 0 {
		return ""
	}
	sorted := make([]videoFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Width > sorted[j].Width })
	for _, f := range sorted {
		if f.Width <= 1920 {
			return f.Link
		}
	}
	return sorted[len(sorted)-1].Link
}

// fallbackQueries orders search attempts from specific to general, so a
// long query that returns nothing still finds footage for its head.
func fallbackQueries(query string) []string {
	candidates := []string{query}
	var words []string
	for _, w := range strings.Fields(query) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	if len(words) > 2 {
		candidates = append(candidates, strings.Join(words[:2], " "))
	}
	if len(words) > 1 {
		candidates = append(candidates, words[0])
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, q := range candidates {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

func querySlug(query string) string {
	slug := strings.ReplaceAll(query, " ", "_")
	if len(slug) > 30 {
		slug = slug[:30]
	}
	return slug
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
