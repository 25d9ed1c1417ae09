package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cutroom/renderd/internal/api"
	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/config"
	"github.com/cutroom/renderd/internal/db"
	"github.com/cutroom/renderd/internal/engine"
	"github.com/cutroom/renderd/internal/generate"
	"github.com/cutroom/renderd/internal/logging"
	"github.com/cutroom/renderd/internal/overlay"
	"github.com/cutroom/renderd/internal/playback"
	"github.com/cutroom/renderd/internal/render"
	"github.com/cutroom/renderd/internal/stock"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.UploadDir(), cfg.OutputDir(), cfg.WorkDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting renderd", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	assetRepo := assets.NewRepository(database.Conn())

	serviceID, err := ensureServiceID(assetRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure service ID: %w", err)
	}

	authToken, err := ensureAuthToken(assetRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Printf("  renderd v%s\n", Version)
	fmt.Printf("  API URL:    http://127.0.0.1:%d\n", cfg.Port())
	fmt.Printf("  Auth Token: %s\n", authToken)
	fmt.Println()

	styles := overlay.DefaultStyles()
	if path := cfg.StylesFile(); path != "" {
		styles, err = overlay.LoadStyles(path)
		if err != nil {
			return fmt.Errorf("failed to load styles file: %w", err)
		}
		logger.Info("loaded style presets", "path", path, "presets", len(styles.Names()))
	}
	if _, ok := styles.Lookup(cfg.StylePreset()); !ok {
		return fmt.Errorf("unknown default style preset %q", cfg.StylePreset())
	}

	ffmpeg := engine.NewFFmpeg(cfg.FFmpegBin(), cfg.FFprobeBin(), logger)
	doctor := engine.NewDoctor(cfg.FFmpegBin(), logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial ffmpeg probe failed, renders may not work", "error", err)
	} else {
		logger.Info("ffmpeg capabilities detected",
			"version", caps.FFmpegVersion,
			"drawtext", caps.HasDrawtext,
			"subtitles", caps.HasSubtitles,
		)
	}
	initCancel()

	assetSvc := assets.NewService(assetRepo, ffmpeg, cfg.UploadDir(), cfg.MaxUploadBytes(), logger)

	executor := engine.NewExecutor(ffmpeg, logger)
	renderRepo := render.NewRepository(database.Conn())
	renderSvc := render.NewService(renderRepo, assetSvc, executor,
		styles, cfg.StylePreset(),
		cfg.OutputDir(), cfg.WorkDir(),
		cfg.RenderWorkers(), cfg.RenderTimeout(), logger)

	var stockClient stock.Client
	if cfg.StockToken() != "" {
		stockClient = stock.NewHTTPClient(cfg.StockBaseURL(), cfg.StockToken(), cfg.StockTimeout(), logger)
		logger.Info("stock footage fetching enabled", "base_url", cfg.StockBaseURL())
	} else {
		stockClient = stock.NewStubClient(logger)
		logger.Info("no stock API token configured, using placeholder footage")
	}

	generateRepo := generate.NewRepository(database.Conn())
	runner := generate.NewRunner(generateRepo, assetSvc, stockClient, cfg.GenerationPollInterval(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Start(ctx)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		AssetService:   assetSvc,
		AssetRepo:      assetRepo,
		RenderService:  renderSvc,
		RenderRepo:     renderRepo,
		GenerateRepo:   generateRepo,
		GenerateRunner: runner,
		Doctor:         doctor,
		Styles:         styles,
		PlaybackServer: playback.NewServer(cfg.OutputDir(), logger),
		AssetPlayback:  playback.NewServer(cfg.UploadDir(), logger),
		Logger:         logger,
		StartTime:      startTime,
		ServiceID:      serviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	if err := renderSvc.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to drain render jobs", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureServiceID(repo assets.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "service_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	serviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "service_id", serviceID); err != nil {
		return "", err
	}

	return serviceID, nil
}

func ensureAuthToken(repo assets.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
