package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dronm/gowinsvc"
	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/redis/config"
	"github.com/dronm/gowinsvc/service"
)

// Services is the service manager as seen by the command handlers.
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

// RedisServer holds Redis server state
type RedisServer struct {
	pool      *gowinsvc.Pool
	svcs      Services
	redis     *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	cfg       *config.Config
	isRunning bool
}

// NewRedisServer creates a new Redis server
func NewRedisServer(cfg *config.Config) *RedisServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisServer{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// Start connects to Redis, opens the WMI pool and starts the command loop
func (s *RedisServer) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         s.cfg.Redis.Addr(),
		Password:     s.cfg.Redis.Password,
		Username:     s.cfg.Redis.Username,
		DB:           s.cfg.Redis.DB,
		ReadTimeout:  s.cfg.Redis.ReadTimeout.Duration,
		WriteTimeout: s.cfg.Redis.WriteTimeout.Duration,
		MaxIdleConns: s.cfg.Redis.MaxIdle,
		PoolSize:     s.cfg.Redis.MaxActive,
	})
	s.redis = client
	s.mu.Unlock()

	if err := client.Ping(s.ctx).Err(); err != nil {
		s.closeRedis()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.startPool(); err != nil {
		s.closeRedis()
		return err
	}

	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.processCommands()

	logger.Logger.Info("Redis server started successfully")
	return nil
}

// Stop gracefully stops the server
func (s *RedisServer) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	logger.Logger.Info("Shutting down Redis server...")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout.Duration):
		logger.Logger.Warn("Timeout waiting for running commands")
	}

	s.closeRedis()

	if err := s.stopPool(); err != nil && !errors.Is(err, errPoolNotInitialized) {
		logger.Logger.Errorf("WMI pool close error: %v", err)
	}

	logger.Logger.Info("Redis server stopped successfully")
	return nil
}

func (s *RedisServer) client() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redis
}

// closeRedis closes and forgets the Redis client.
func (s *RedisServer) closeRedis() {
	s.mu.Lock()
	client := s.redis
	s.redis = nil
	s.mu.Unlock()

	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Logger.Errorf("Redis connection close error: %v", err)
	}
}

// processCommands listens for commands from Redis queue
func (s *RedisServer) processCommands() {
	defer s.wg.Done()

	queueName := s.cfg.Redis.CommandQueue
	logger.Logger.Infof("Started processing commands from queue: %s", queueName)

	for {
		select {
		case <-s.ctx.Done():
			logger.Logger.Info("Command processor stopping due to cancellation")
			return
		default:
		}

		client := s.client()
		if client == nil {
			return
		}
		result, err := client.BLPop(s.ctx, s.cfg.Redis.BLPopTimeout.Duration, queueName).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
				continue
			}
			logger.Logger.Errorf("Redis BLPOP error: %v", err)
			select {
			case <-s.ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		commandJSON := result[1]
		logger.Logger.Debugf("Received command: %s", commandJSON)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleCommand(commandJSON)
		}()
	}
}

// startPool opens the WMI pool and the service manager on top of it.
func (s *RedisServer) startPool() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return fmt.Errorf("pool already started")
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

// stopPool closes the WMI pool
func (s *RedisServer) stopPool() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svcs == nil {
		return errPoolNotInitialized
	}

	s.svcs = nil
	if s.pool != nil {
		pool := s.pool
		s.pool = nil
		if err := pool.Close(); err != nil {
			return fmt.Errorf("failed to close pool: %w", err)
		}
	}
	return nil
}

func (s *RedisServer) services() Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.svcs
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
