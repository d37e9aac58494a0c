package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Protected routes
	protected := s.router.PathPrefix("/").Subrouter()
	if s.cfg.Auth.RequireAuth {
		protected.Use(s.basicAuthMiddleware)
	}

	if s.cfg.MetricsEnabled() {
		protected.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Pool
	protected.HandleFunc("/status", s.handlePoolStatus).Methods("GET")
	protected.HandleFunc("/pool/start", s.handleStart).Methods("POST")
	protected.HandleFunc("/pool/stop", s.handleStop).Methods("POST")

	// Services
	protected.HandleFunc("/services", s.handleList).Methods("GET")
	protected.HandleFunc("/services/{name}", s.handleGet).Methods("GET")
	protected.HandleFunc("/services/{name}/exists", s.handleExists).Methods("GET")
	protected.HandleFunc("/services/{name}/start", s.handleControl(opStart)).Methods("POST")
	protected.HandleFunc("/services/{name}/stop", s.handleControl(opStop)).Methods("POST")
	protected.HandleFunc("/services/{name}/restart", s.handleControl(opRestart)).Methods("POST")
	protected.HandleFunc("/services/{name}/startup", s.handleStartup).Methods("PUT")

	// Startup mode tables
	protected.HandleFunc("/startmodes", s.handleStartModes).Methods("GET")
	protected.HandleFunc("/startmodes/canonicalize", s.handleCanonicalize).Methods("POST")

	// 404 and 405 must be set on the root router, a subrouter
	// NotFoundHandler also swallows method mismatches
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	// Add middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}
