// Package server is the HTTP transport: the query API, the embedded web UI,
// and the operational endpoints. It only talks to the engine through the
// SearchEngine seam, so the transport never sees the index lock.
package server

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net"
	"net/http"

	"github.com/docsense/docsense/pkg/config"
	"github.com/docsense/docsense/pkg/health"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
	"github.com/docsense/docsense/pkg/middleware"
)

//go:embed web
var webFS embed.FS

// Server wraps the http.Server with route setup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
	log        *slog.Logger
}

// New assembles the mux and middleware chain. The metrics endpoint is
// mounted only when enabled in configuration.
func New(cfg config.ServerConfig, metricsEnabled bool, h *Handler, checker *health.Checker, m *metrics.Metrics) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", h.Search)
	mux.HandleFunc("GET /api/stats", h.Stats)
	mux.HandleFunc("GET /api/analytics", h.Analytics)
	mux.HandleFunc("GET /health", checker.Handler())
	if metricsEnabled {
		mux.Handle("GET /metrics", m.Handler())
	}

	web, _ := fs.Sub(webFS, "web")
	mux.Handle("GET /", http.FileServerFS(web))

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      chain,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg:        cfg,
		log:        logger.WithComponent("server"),
	}
}

// Run serves until ctx is canceled, then shuts down gracefully. It returns
// nil on a clean shutdown, and only after in-flight requests have drained,
// so callers can tear down the handlers' collaborators the moment it
// returns.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "error", err)
		}
	}()

	s.log.Info("listening", "addr", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	// Serve returns as soon as Shutdown closes the listener; the drain is
	// still in progress until Shutdown itself returns.
	<-drained
	return nil
}
