package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fbarbosa/hermes/internal/config"
)

// Server manages the observability endpoints (health checks and metrics).
// It runs on a dedicated port to isolate administrative traffic from business traffic.
type Server struct {
	logger   *slog.Logger
	cfg      *config.ObservabilityConfig
	router   *chi.Mux
	server   *http.Server
	checkers []Checker
}

// NewServer creates a new instance of the observability server.
// It accepts a variable number of checkers (e.g., Postgres, Redis) to be
// verified in the readiness probe.
func NewServer(logger *slog.Logger, cfg *config.ObservabilityConfig, checkers ...Checker) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		panic("observability: config cannot be nil")
	}

	r := chi.NewRouter()

	// Standard middlewares for the admin server
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	s := &Server{
		logger:   logger,
		cfg:      cfg,
		router:   r,
		checkers: checkers,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadTimeout:       cfg.Timeout,
			WriteTimeout:      cfg.Timeout,
			IdleTimeout:       cfg.Timeout,
			ReadHeaderTimeout: cfg.Timeout,
		},
	}

	r.Get(cfg.LivenessPath, s.handleLiveness)
	r.Get(cfg.ReadinessPath, s.handleReadiness)
	r.Handle(cfg.MetricsPath, promhttp.Handler())

	return s
}

// Start runs the observability server in a background goroutine.
// This method is non-blocking; errors other than graceful close are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting observability server",
			slog.String("port", s.cfg.Port),
			slog.String("metrics_path", s.cfg.MetricsPath),
		)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("observability server failed", slog.String("error", err.Error()))
		}
	}()
}

// Shutdown gracefully stops the observability server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleLiveness reports whether the process is alive. It never checks
// dependencies: a failing dependency must not get the pod restarted.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// checkResult is the readiness report for a single component.
type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleReadiness runs every registered checker and reports 503 when any
// dependency fails, so load balancers stop routing traffic here.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	results := make([]checkResult, 0, len(s.checkers))
	healthy := true

	for _, c := range s.checkers {
		res := checkResult{Name: c.Name(), Status: "ok"}
		if err := c.Check(r.Context()); err != nil {
			healthy = false
			res.Status = "failed"
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": healthy,
		"checks":  results,
	})
}
