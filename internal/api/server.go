// Package api is the local preview server: it queues runs, reports their
// progress and streams finished videos and subtitles.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thinktok/thinktok/internal/catalog"
	"github.com/thinktok/thinktok/internal/media"
	"github.com/thinktok/thinktok/internal/pipeline"
	"github.com/thinktok/thinktok/internal/playback"
)

const Version = "0.1.0"

// StageReporter lists in-flight generations. *pipeline.Pipeline implements it.
type StageReporter interface {
	Active() []pipeline.Status
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port           int
	CatalogService catalog.CatalogService
	PlaybackServer playback.PlaybackService
	Repository     catalog.Repository
	Runner         *catalog.Runner
	Doctor         *media.CachedDoctor
	Stages         StageReporter
	Logger         *slog.Logger
	StartTime      time.Time
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
