package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cutroom/renderd/internal/assets"
	"github.com/cutroom/renderd/internal/engine"
	"github.com/cutroom/renderd/internal/generate"
	"github.com/cutroom/renderd/internal/overlay"
	"github.com/cutroom/renderd/internal/playback"
	"github.com/cutroom/renderd/internal/render"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port           int
	AssetService   *assets.Service
	AssetRepo      assets.Repository
	RenderService  *render.Service
	RenderRepo     render.Repository
	GenerateRepo   generate.Repository
	GenerateRunner *generate.Runner
	Doctor         *engine.Doctor
	Styles         *overlay.Styles
	PlaybackServer *playback.Server
	AssetPlayback  *playback.Server
	Logger         *slog.Logger
	StartTime      time.Time
	ServiceID      string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
