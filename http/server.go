package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/dronm/gowinsvc"
	"github.com/dronm/gowinsvc/http/config"
	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/service"
)

// Services is the service manager as seen by the handlers.
type Services interface {
	List(pattern string) ([]service.Summary, error)
	Get(name string) (service.Item, error)
	Exists(name string) (bool, error)
	ExistsWithMode(name, modeText string) (bool, error)
	Start(ctx context.Context, name string) (service.Item, error)
	Stop(ctx context.Context, name string) (service.Item, error)
	Restart(ctx context.Context, name string) (service.Item, error)
	ChangeStartup(ctx context.Context, name, text string) (service.StartupChange, error)
}

// Server holds HTTP server state
type Server struct {
	pool    *gowinsvc.Pool
	svcs    Services
	router  *mux.Router
	server  *http.Server
	metrics *metrics
	mu      sync.RWMutex
	cfg     *config.Config
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		router: mux.NewRouter(),
		cfg:    cfg,
	}
	s.metrics = newMetrics(s.activeConnections)

	s.setupRoutes()

	return s
}

// Start opens the WMI pool and starts the HTTP server
func (s *Server) Start() error {
	if err := s.openPool(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.server = &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout.Duration,
		WriteTimeout: s.cfg.WriteTimeout.Duration,
		IdleTimeout:  s.cfg.IdleTimeout.Duration,
	}

	go func(srv *http.Server) {
		logger.Logger.Infof("Starting HTTP server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Errorf("HTTP server error: %v", err)
		}
	}(s.server)

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv != nil {
		logger.Logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Logger.Errorf("HTTP server shutdown error: %v", err)
		}
	}

	s.closePool()
	logger.Logger.Info("Server stopped successfully")

	return nil
}

// openPool creates the WMI pool and the service manager on top of it.
func (s *Server) openPool() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return nil
	}

	pool, err := gowinsvc.NewPool(NewPoolCfg(s.cfg), logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to create WMI pool: %w", err)
	}
	s.pool = pool
	s.svcs = service.NewManager(
		service.NewSCM(),
		service.NewWMIInspector(pool),
		service.NewRegistryProbe(),
		logger.Logger,
		service.Options{
			WaitTimeout:  s.cfg.Manager.WaitTimeout.Duration,
			PollInterval: s.cfg.Manager.PollInterval.Duration,
		},
	)
	return nil
}

func (s *Server) closePool() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return
	}
	if err := s.pool.Close(); err != nil {
		logger.Logger.Errorf("WMI pool close error: %v", err)
	}
	s.pool = nil
	s.svcs = nil
}

func (s *Server) services() Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.svcs
}

func (s *Server) activeConnections() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return 0
	}
	return float64(s.pool.ActiveCount())
}

func NewPoolCfg(cfg *config.Config) *gowinsvc.Config {
	return &gowinsvc.Config{
		Server:           cfg.WMI.Server,
		Namespace:        cfg.WMI.Namespace,
		User:             cfg.WMI.User,
		Password:         cfg.WMI.Password,
		MaxPoolSize:      cfg.WMI.MaxPoolSize,
		MinPoolSize:      cfg.WMI.MinPoolSize,
		IdleTimeout:      cfg.WMI.IdleTimeout.Duration,
		COMObjectID:      cfg.WMI.COMObjectID,
		WaitConnTimeout:  cfg.WMI.WaitConnTimeout.Duration,
		CleanupIdleConn:  cfg.WMI.CleanupIdleConn.Duration,
		ConnCloseTimeout: cfg.WMI.ConnCloseTimeout.Duration,
	}
}
