// Package api exposes the matching service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"organmatch/internal/common/config"
	"organmatch/internal/common/logger"
	"organmatch/internal/common/observability"
	"organmatch/internal/matching/compatibility"
	"organmatch/internal/matching/engine"
	"organmatch/internal/matching/geo"
	"organmatch/internal/matching/service"
	"organmatch/pkg/registry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Matcher is the part of service.MatchService the API calls.
type Matcher interface {
	Match(ctx context.Context, req service.MatchRequest) (*engine.Result, error)
	CheckEligibility(ctx context.Context, req service.EligibilityRequest) (*service.EligibilityResult, error)
	Rules() compatibility.Rules
}

// Regions lists known regions and measures the distance between two of them.
type Regions interface {
	Regions() []string
	Distance(a, b string) geo.Distance
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Matcher       Matcher
	Regions       Regions
	Checks        map[string]ReadinessCheck
	Activities    *registry.ActivityRegistry
	Observability *observability.Observability
	Logger        logger.Logger
}

// Server represents the HTTP API server
type Server struct {
	opts       Options
	router     *mux.Router
	httpServer *http.Server
	logger     logger.Logger
}

func NewServer(cfg config.ServerConfig, opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  durationOr(cfg.ReadTimeoutMs, 15*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeoutMs, 15*time.Second),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	h := &handlers{
		matcher: s.opts.Matcher,
		regions: s.opts.Regions,
		checks:     s.opts.Checks,
		activities: s.opts.Activities,
		logger:     s.logger,
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/matches", h.findMatches).Methods(http.MethodPost)
	api.HandleFunc("/eligibility", h.checkEligibility).Methods(http.MethodPost)
	api.HandleFunc("/regions", h.listRegions).Methods(http.MethodGet)
	api.HandleFunc("/distance", h.distance).Methods(http.MethodGet)
	api.HandleFunc("/rules", h.rules).Methods(http.MethodGet)
	api.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
	api.HandleFunc("/activities/{taskType}", h.getActivity).Methods(http.MethodGet)

	s.router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", h.ready).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router.Use(recoverPanics(s.logger))
	s.router.Use(requestLogging(s.logger, s.opts.Observability))
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", map[string]interface{}{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func durationOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return config.GetDuration(ms)
}
