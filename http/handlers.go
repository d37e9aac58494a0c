package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dronm/gowinsvc/flagcodec"
	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/service"
	"github.com/dronm/gowinsvc/startmode"
)

const errPoolNotInitialized = "pool not initialized"

const (
	opStart   = "start"
	opStop    = "stop"
	opRestart = "restart"
	opStartup = "startup"
)

// APIResponse structure for API calls
type APIResponse struct {
	Success bool   `json:"success"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StartupRequest is the body of PUT /services/{name}/startup.
type StartupRequest struct {
	Mode string `json:"mode"`
}

// CanonicalizeRequest is the body of POST /startmodes/canonicalize.
type CanonicalizeRequest struct {
	Text string `json:"text"`
}

// StartModeEntry describes one row of the startup table.
type StartModeEntry struct {
	Value     uint32   `json:"value"`
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := APIResponse{
		Success: true,
		Payload: "OK",
	}
	s.respondJSON(w, http.StatusOK, response)
}

// handlePoolStatus returns WMI pool status
func (s *Server) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]any)

	s.mu.RLock()
	if s.pool != nil {
		status["status"] = "running"
		status["connStatuses"] = s.pool.ConnStatuses()
		status["connCount"] = s.pool.ActiveCount()
	} else if s.svcs != nil {
		status["status"] = "running"
	} else {
		status["status"] = "stopped"
	}
	s.mu.RUnlock()

	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: status})
}

// handleStop closes all WMI connections
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.services() == nil {
		s.respondError(w, http.StatusBadGateway, errPoolNotInitialized)
		return
	}
	s.closePool()
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

// handleStart opens the WMI pool with its minimum number of connections
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.openPool(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	svcs := s.requireServices(w)
	if svcs == nil {
		return
	}
	list, err := svcs.List(r.URL.Query().Get("pattern"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: list})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	svcs := s.requireServices(w)
	if svcs == nil {
		return
	}
	it, err := svcs.Get(mux.Vars(r)["name"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: it})
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	svcs := s.requireServices(w)
	if svcs == nil {
		return
	}
	name := mux.Vars(r)["name"]

	var (
		ok  bool
		err error
	)
	if mode := r.URL.Query().Get("mode"); mode != "" {
		ok, err = svcs.ExistsWithMode(name, mode)
	} else {
		ok, err = svcs.Exists(name)
	}
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: ok})
}

// handleControl starts, stops or restarts the service named in the path.
func (s *Server) handleControl(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svcs := s.requireServices(w)
		if svcs == nil {
			return
		}
		name := mux.Vars(r)["name"]

		var fn func(context.Context, string) (service.Item, error)
		switch op {
		case opStart:
			fn = svcs.Start
		case opStop:
			fn = svcs.Stop
		default:
			fn = svcs.Restart
		}

		startTime := time.Now()
		it, err := fn(r.Context(), name)
		s.metrics.observeOp(op, err)
		if err != nil {
			logger.Logger.Errorf("%s %s failed: %v, duration: %v", op, name, err, time.Since(startTime))
			s.respondServiceError(w, err)
			return
		}

		logger.Logger.Infof("%s %s done, duration: %v", op, name, time.Since(startTime))
		s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: it})
	}
}

func (s *Server) handleStartup(w http.ResponseWriter, r *http.Request) {
	svcs := s.requireServices(w)
	if svcs == nil {
		return
	}

	var req StartupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON request")
		return
	}
	if req.Mode == "" {
		s.respondError(w, http.StatusBadRequest, "mode is required")
		return
	}

	change, err := svcs.ChangeStartup(r.Context(), mux.Vars(r)["name"], req.Mode)
	s.metrics.observeOp(opStartup, err)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: change})
}

func (s *Server) handleStartModes(w http.ResponseWriter, r *http.Request) {
	entries := startmode.Startup().Entries()
	list := make([]StartModeEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, StartModeEntry{
			Value:     uint32(e.Value),
			Canonical: e.Canonical(),
			Aliases:   e.Aliases,
		})
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: list})
}

func (s *Server) handleCanonicalize(w http.ResponseWriter, r *http.Request) {
	var req CanonicalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON request")
		return
	}

	text, err := startmode.Canonicalize(req.Text)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, APIResponse{Success: true, Payload: text})
}

// handleNotFound handles 404 errors
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, "endpoint not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) requireServices(w http.ResponseWriter) Services {
	svcs := s.services()
	if svcs == nil {
		s.respondError(w, http.StatusBadGateway, errPoolNotInitialized)
	}
	return svcs
}

// statusCode maps manager and codec errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, flagcodec.ErrUnrecognizedToken),
		errors.Is(err, service.ErrAmbiguousMode),
		errors.Is(err, service.ErrDelayedRequiresAutomatic),
		errors.Is(err, service.ErrTriggerReadOnly):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	s.respondError(w, statusCode(err), err.Error())
}

// loggingMiddleware logs all requests and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.observeRequest(route, r.Method, rw.statusCode, duration.Seconds())
		logger.Logger.Debugf("%s %s %d %v", r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// recoveryMiddleware recovers from panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Logger.Warnf("panic recovered: %v", err)
				s.respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// respondJSON sends JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Logger.Errorf("json.NewEncoder(): %v", err)
	}
}

// respondError sends error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}
	s.respondJSON(w, status, response)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
