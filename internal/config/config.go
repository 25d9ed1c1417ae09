// Package config provides configuration for the renderd service.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort         = 8698
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".renderd"
	DefaultStylePreset  = "minimal"
	DefaultWorkers      = 2
	DefaultRenderMins   = 20
	DefaultFFmpegBin    = "ffmpeg"
	DefaultFFprobeBin   = "ffprobe"
	DefaultMaxUploadMB  = 512
	DefaultGenPollSecs  = 5
	DefaultStockTimeout = 60 // seconds

	// Environment variable names
	EnvPort        = "RENDERD_PORT"
	EnvLogLevel    = "RENDERD_LOG_LEVEL"
	EnvDataDir     = "RENDERD_DATA_DIR"
	EnvWorkers     = "RENDERD_WORKERS"
	EnvStylePreset = "RENDERD_STYLE_PRESET"
	EnvStylesFile  = "RENDERD_STYLES_FILE"
	EnvFFmpegBin   = "RENDERD_FFMPEG"
	EnvFFprobeBin  = "RENDERD_FFPROBE"
	EnvStockURL    = "RENDERD_STOCK_URL"
	EnvStockToken  = "RENDERD_STOCK_TOKEN"

	// Database filename
	DBFilename = "renderd.db"
)

// Config defines the application configuration interface.
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	UploadDir() string
	OutputDir() string
	WorkDir() string
	RenderWorkers() int
	RenderTimeout() time.Duration
	StylePreset() string
	StylesFile() string
	FFmpegBin() string
	FFprobeBin() string
	MaxUploadBytes() int64
	GenerationPollInterval() time.Duration
	StockBaseURL() string
	StockToken() string
	StockTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables.
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	workers     int
	stylePreset string
	stylesFile  string
	ffmpegBin   string
	ffprobeBin  string
	stockURL    string
	stockToken  string
}

// New creates a new EnvConfig with defaults and environment variable overrides.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:        DefaultPort,
		logLevel:    DefaultLogLevel,
		dataDir:     defaultDataDir(),
		workers:     defaultWorkers(),
		stylePreset: DefaultStylePreset,
		ffmpegBin:   DefaultFFmpegBin,
		ffprobeBin:  DefaultFFprobeBin,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		abs, err := filepath.Abs(dd)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvDataDir, err)
		}
		cfg.dataDir = abs
	}

	if w := os.Getenv(EnvWorkers); w != "" {
		workers, err := strconv.Atoi(w)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		if workers < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvWorkers)
		}
		cfg.workers = workers
	}

	if sp := os.Getenv(EnvStylePreset); sp != "" {
		cfg.stylePreset = sp
	}
	cfg.stylesFile = os.Getenv(EnvStylesFile)

	if b := os.Getenv(EnvFFmpegBin); b != "" {
		cfg.ffmpegBin = b
	}
	if b := os.Getenv(EnvFFprobeBin); b != "" {
		cfg.ffprobeBin = b
	}

	cfg.stockURL = os.Getenv(EnvStockURL)
	cfg.stockToken = os.Getenv(EnvStockToken)

	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func defaultWorkers() int {
	// Render jobs are ffmpeg-bound; half the cores keeps the box responsive.
	n := runtime.NumCPU() / 2
	if n < DefaultWorkers {
		n = DefaultWorkers
	}
	return n
}

func (c *EnvConfig) Port() int          { return c.port }
func (c *EnvConfig) LogLevel() string   { return c.logLevel }
func (c *EnvConfig) DataDir() string    { return c.dataDir }
func (c *EnvConfig) DBPath() string     { return filepath.Join(c.dataDir, DBFilename) }
func (c *EnvConfig) UploadDir() string  { return filepath.Join(c.dataDir, "uploads") }
func (c *EnvConfig) OutputDir() string  { return filepath.Join(c.dataDir, "outputs") }
func (c *EnvConfig) WorkDir() string    { return filepath.Join(c.dataDir, "work") }
func (c *EnvConfig) RenderWorkers() int { return c.workers }

func (c *EnvConfig) RenderTimeout() time.Duration {
	return DefaultRenderMins * time.Minute
}

func (c *EnvConfig) StylePreset() string { return c.stylePreset }
func (c *EnvConfig) StylesFile() string  { return c.stylesFile }
func (c *EnvConfig) FFmpegBin() string   { return c.ffmpegBin }
func (c *EnvConfig) FFprobeBin() string  { return c.ffprobeBin }

func (c *EnvConfig) MaxUploadBytes() int64 {
	return DefaultMaxUploadMB * 1024 * 1024
}

func (c *EnvConfig) GenerationPollInterval() time.Duration {
	return DefaultGenPollSecs * time.Second
}

func (c *EnvConfig) StockBaseURL() string { return c.stockURL }
func (c *EnvConfig) StockToken() string   { return c.stockToken }

func (c *EnvConfig) StockTimeout() time.Duration {
	return DefaultStockTimeout * time.Second
}
