// Package server assembles the WaveSight HTTP surface: operational
// probes, the versioned API, plugin routes, and the middleware stack
// in front of them.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/HerbHall/wavesight/internal/version"
	"github.com/HerbHall/wavesight/pkg/plugin"
)

// PluginSource is the server's view of the plugin registry: route
// tables and metadata, nothing else. Declared here so the server does
// not import the concrete registry.
type PluginSource interface {
	AllRoutes() map[string][]plugin.Route
	All() []plugin.Plugin
}

// ReadinessChecker reports whether the process can serve traffic. A
// nil error means ready.
type ReadinessChecker func(ctx context.Context) error

// RouteRegistrar mounts routes plus a middleware of its own, which is
// how the auth package hooks in without an import cycle.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
	Middleware() func(http.Handler) http.Handler
}

// SimpleRouteRegistrar mounts routes with no middleware attached.
type SimpleRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Options selects the optional parts of the server.
type Options struct {
	// Auth mounts the key management routes and the bearer-token
	// check. Nil runs the API unauthenticated.
	Auth RouteRegistrar
	// ExtraRoutes mount outside /api/v1, such as the WebSocket stream.
	ExtraRoutes []SimpleRouteRegistrar
	// DevMode serves the Swagger UI at /swagger/.
	DevMode bool
	// DemoMode rejects every mutating request with 405.
	DemoMode bool
}

// probePaths stay out of request logging and rate limiting so
// orchestrator probes and metric scrapes keep working while a client
// is throttled.
var probePaths = []string{"/healthz", "/readyz", "/metrics"}

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second

	// Per-client token bucket for the API.
	apiRate  = 100
	apiBurst = 200
)

// Server ties the mux, the middleware chain, and the http.Server
// together.
type Server struct {
	httpServer *http.Server
	plugins    PluginSource
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
}

// New builds a fully-routed server for addr.
func New(addr string, plugins PluginSource, logger *zap.Logger, ready ReadinessChecker, opts Options) *Server {
	s := &Server{
		plugins: plugins,
		logger:  logger,
		mux:     http.NewServeMux(),
		ready:   ready,
	}
	s.mountRoutes(opts)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      Chain(s.mux, s.middlewareChain(opts)...),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) mountRoutes(opts Options) {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.liveness)
	s.mux.HandleFunc("GET /readyz", s.readiness)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API.
	s.mux.HandleFunc("GET /api/v1/health", s.apiHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.apiPlugins)

	if opts.Auth != nil {
		opts.Auth.RegisterRoutes(s.mux)
	}
	for _, r := range opts.ExtraRoutes {
		r.RegisterRoutes(s.mux)
	}

	// Plugin routes live under /api/v1/{plugin}/.
	for name, routes := range s.plugins.AllRoutes() {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, name, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", name),
				zap.String("pattern", pattern),
			)
		}
	}

	if opts.DevMode {
		s.mux.Handle("GET /swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
		s.logger.Info("swagger UI enabled (dev_mode)", zap.String("path", "/swagger/"))
	}
}

// middlewareChain lists the stack outermost first. Recovery wraps
// everything; auth sits innermost so rejected requests still show up
// in logs and metrics.
func (s *Server) middlewareChain(opts Options) []Middleware {
	chain := []Middleware{
		RecoveryMiddleware(s.logger),
		RequestIDMiddleware,
		LoggingMiddleware(s.logger, probePaths),
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(apiRate, apiBurst, probePaths),
	}
	if opts.DemoMode {
		chain = append(chain, DemoMiddleware)
		s.logger.Info("demo mode enabled: mutating requests are rejected")
	}
	if opts.Auth != nil {
		chain = append(chain, opts.Auth.Middleware())
	}
	return chain
}

// Start serves until Shutdown. A closed server is a clean return, not
// an error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// liveness answers 200 whenever the process is up.
func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// readiness consults the readiness hook and answers 503 with the
// reason when the server cannot take traffic yet.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Service string            `json:"service" example:"wavesight"`
	Version map[string]string `json:"version"`
}

// PluginResponse describes one registered plugin.
type PluginResponse struct {
	Name        string `json:"name" example:"telemetry"`
	Version     string `json:"version" example:"0.1.0"`
	Description string `json:"description" example:"Measurement ingest, smoothing, and anomaly scoring"`
}

// apiHealth reports service status and build information.
//
//	@Summary		Health check
//	@Description	Returns service health status with version information.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (s *Server) apiHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "wavesight",
		Version: version.Map(),
	})
}

// apiPlugins lists the active plugins.
//
//	@Summary		List plugins
//	@Description	Returns all registered plugins with their metadata.
//	@Tags			system
//	@Produce		json
//	@Success		200	{array}	PluginResponse
//	@Router			/plugins [get]
func (s *Server) apiPlugins(w http.ResponseWriter, _ *http.Request) {
	plugins := s.plugins.All()
	out := make([]PluginResponse, 0, len(plugins))
	for _, p := range plugins {
		info := p.Info()
		out = append(out, PluginResponse{
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
