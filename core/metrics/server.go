package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"log/slog"

	"github.com/m3rciful/schoolbot/core/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Router exposes /metrics and /healthz.
func Router(m *Metrics, health Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	if m != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := health.PingContext(ctx); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Server runs the metrics listener in the background.
type Server struct {
	srv  *http.Server
	done chan error
}

// Start binds listen and serves the router until Shutdown.
func Start(listen string, m *Metrics, health Pinger) (*Server, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("metrics: listen %s: %w", listen, err)
	}
	s := &Server{
		srv: &http.Server{
			Handler:           Router(m, health),
			ReadHeaderTimeout: 5 * time.Second,
		},
		done: make(chan error, 1),
	}
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	logger.TWire.Info("metrics listener started",
		slog.String("event", "metrics.listen"),
		slog.String("listen", ln.Addr().String()),
	)
	return s, nil
}

// Shutdown stops accepting connections and waits for the serve loop.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-s.done
}
