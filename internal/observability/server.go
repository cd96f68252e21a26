package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Health is reported by the /health endpoint.
type Health struct {
	Status   string         `json:"status"`
	Snapshot int64          `json:"snapshot"`
	Assets   map[string]int `json:"assets,omitempty"`
}

// HealthFunc reports the current health of the server.
type HealthFunc func(ctx context.Context) Health

// Server exposes /metrics and /health.
type Server struct {
	addr   string
	health HealthFunc
	logger *slog.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, health HealthFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if health == nil {
		health = func(context.Context) Health { return Health{Status: "up"} }
	}
	return &Server{addr: addr, health: health, logger: logger}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.health(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting metrics server", "addr", s.addr)

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down metrics server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
