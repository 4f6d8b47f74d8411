package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/digest-agent/internal/catalog"
	"github.com/heimdex/digest-agent/internal/digest"
	"github.com/heimdex/digest-agent/internal/pipelines"
)

// Digester processes one video URL synchronously.
type Digester interface {
	Process(ctx context.Context, rawURL string) (*digest.Result, error)
}

// ModelStatus reports on the shared summarization model handle.
type ModelStatus interface {
	Name() string
	Loaded() bool
	Loads() int64
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Addr        string
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int

	Digest         Digester
	DigestStats    func() digest.Stats
	CatalogService catalog.CatalogService
	Repository     catalog.Repository
	Runner         *catalog.Runner
	Doctor         *pipelines.CachedDoctor
	Model          ModelStatus
	Backend        string
	Sinks          []string
	ExportDir      string

	Logger     *slog.Logger
	StartTime  time.Time
	InstanceID string
	Version    string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Summaries of long videos can take minutes on CPU.
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
