package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaultlane/vault-creator/internal/types"
)

// APIHandler is a custom handler type that returns data or an error
type APIHandler func(w http.ResponseWriter, r *http.Request) (interface{}, error)

// Orchestrator is the batch aggregate owner behind the HTTP surface.
type Orchestrator interface {
	CreateBatch(ctx context.Context, ownerID string, termsAccepted bool,
		specs []types.VaultItemSpec) (*types.BatchRequest, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*types.BatchRequest, error)
}

type Server struct {
	config       *Config
	orchestrator Orchestrator
	httpServer   *http.Server
	ctx          context.Context
	log          *slog.Logger
}

type Config struct {
	ListenAddr   string
	ListenPort   int
	MetricsPort  int
	ProbesPort   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	ID           string
}

func NewServer(config *Config, orchestrator Orchestrator) *Server {
	return &Server{
		config:       config,
		orchestrator: orchestrator,
		log:          slog.With("pod", config.ID, "component", "web-server"),
		httpServer: &http.Server{
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// metricsMux and probesMux are separate: each port exposes only its own
// endpoints.
func (s *Server) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func (s *Server) probesMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/health", WithMethod(
		WithJSONResponse(s.HealthHandler),
		http.MethodGet,
	))

	mux.Handle("/ready", WithMethod(
		WithJSONResponse(s.ReadinessHandler),
		http.MethodGet,
	))

	return mux
}

func (s *Server) StartProbesAndMetrics() {
	// Expose Prometheus metrics
	go func() {
		slog.Info("Serving metrics", "port", s.config.MetricsPort)

		addr := fmt.Sprintf(":%d", s.config.MetricsPort)
		slog.Error("Prometheus HTTP listener failed", "error",
			http.ListenAndServe(addr, s.metricsMux()))
	}()

	// Expose health probes
	go func() {
		slog.Info("Serving health probes", "port", s.config.ProbesPort)

		addr := fmt.Sprintf(":%d", s.config.ProbesPort)
		slog.Error("Health checks HTTP listener failed", "error",
			http.ListenAndServe(addr, s.probesMux()))
	}()
}

func (s *Server) Start(ctx context.Context, stop <-chan os.Signal) {
	s.StartProbesAndMetrics()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/batches", WithJSONResponse(s.CreateBatchHandler))
	mux.HandleFunc("GET /v1/batches/{id}", WithJSONResponse(s.GetBatchHandler))
	mux.HandleFunc("GET /v1/batches/{id}/status", WithJSONResponse(s.GetBatchStatusHandler))

	s.httpServer.Handler = http.TimeoutHandler(mux, s.config.WriteTimeout, "Timeout")

	go s.run(ctx)

	<-stop

	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}

func (s *Server) run(ctx context.Context) {
	s.ctx = ctx

	slog.Info("Starting server", "port", s.config.ListenPort)

	// Use ListenConfig to create a listener with context support
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.config.ListenAddr, s.config.ListenPort))
	if err != nil {
		slog.Error("Error creating listener", "error", err)
		return
	}
	defer listener.Close()

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		slog.Error("Could not start server", "error", err.Error())
	}
}
