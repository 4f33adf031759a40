// Package api exposes the deployment control plane over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/raildeploy/internal/api/handler"
	mw "github.com/edvin/raildeploy/internal/api/middleware"
	"github.com/edvin/raildeploy/internal/config"
	"github.com/edvin/raildeploy/internal/deploy"
	"github.com/edvin/raildeploy/internal/railcli"
)

type Server struct {
	router chi.Router
	logger zerolog.Logger
	pool   *pgxpool.Pool
	cfg    *config.Config
}

func NewServer(
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	registry deploy.ServiceRegistry,
	deployer *deploy.SingleServiceDeployer,
	orch *deploy.Orchestrator,
	runner railcli.Runner,
	cfg *config.Config,
) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		pool:   pool,
		cfg:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(registry, deployer, orch, runner)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes(registry deploy.ServiceRegistry, deployer *deploy.SingleServiceDeployer, orch *deploy.Orchestrator, runner railcli.Runner) {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		service := handler.NewService(registry)
		r.Post("/services", service.Create)
		r.Get("/services/{id}", service.Get)
		r.Patch("/services/{id}", service.Update)
		r.Get("/projects/{projectID}/services", service.ListByProject)

		deployment := handler.NewDeployment(registry, deployer, orch, s.cfg.RailwayToken)
		r.Post("/services/{id}/deploy", deployment.Deploy)
		r.Post("/services/{id}/redeploy", deployment.Redeploy)
		r.Post("/services/{id}/restart", deployment.Restart)
		r.Post("/services/{id}/rollback", deployment.Rollback)
		r.Get("/services/{id}/deployments", deployment.History)
		r.Post("/projects/{projectID}/deploy", deployment.BulkDeploy)

		variables := handler.NewVariables(registry, deployer, s.cfg.RailwayToken)
		r.Get("/services/{id}/variables", variables.List)
		r.Put("/services/{id}/variables", variables.Set)
		r.Delete("/services/{id}/variables/{name}", variables.Delete)

		platform := handler.NewPlatform(runner, s.cfg.RailwayToken)
		r.Get("/platform/health", platform.Health)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
