// Package gowinsvc is a WMI connection pool for Windows service administration.
package gowinsvc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger is the logging contract of the pool. *logrus.Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Pool manages a pool of WMI connections
type Pool struct {
	cfg         *Config
	connections []*Connection
	freeConn    chan *Connection
	createMutex sync.Mutex
	closeOnce   sync.Once
	shutdown    chan struct{}
	logger      Logger
	nextID      int
	activeCount int
	poolMutex   sync.RWMutex
}

var (
	errPoolFull     = errors.New("maximum pool size reached")
	errPoolShutdown = errors.New("pool is shutdown")
)

// NewPool creates a new WMI connection pool
func NewPool(cfg *Config, logger Logger) (*Pool, error) {
	cfg.SetDefaults()

	pool := &Pool{
		cfg:         cfg,
		connections: make([]*Connection, 0, cfg.MaxPoolSize),
		freeConn:    make(chan *Connection, cfg.MaxPoolSize),
		shutdown:    make(chan struct{}),
		logger:      logger,
	}

	if err := pool.InitConnections(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create initial connection: %w", err)
	}

	go pool.cleanupIdleConnections()

	return pool, nil
}

// Execute runs fn on a pooled connection. A connection whose worker has
// exited is dropped from the pool instead of being handed out again.
func (p *Pool) Execute(fn func(conn *Connection) (any, error)) (any, error) {
	conn, err := p.GetConnection()
	if err != nil {
		return nil, err
	}

	res, err := fn(conn)
	if errors.Is(err, errConnClosed) {
		p.logger.Warnf("WMI connection %d is gone, dropping it", conn.id)
		p.poolMutex.Lock()
		p.closeConnection(conn)
		p.poolMutex.Unlock()
		return nil, err
	}

	p.ReleaseConnection(conn)
	return res, err
}

func (p *Pool) InitConnections() error {
	for i := 0; i < p.cfg.MinPoolSize; i++ {
		if err := p.createConnection(); err != nil {
			return err
		}
	}
	return nil
}

// ConnStatus is a snapshot of one pooled connection.
type ConnStatus struct {
	ID       int       `json:"id"`
	UseCount int64     `json:"useCount"`
	LastUsed time.Time `json:"lastUsed"`
	Busy     bool      `json:"busy"`
}

// ConnStatuses returns the state of every open connection ordered by ID.
func (p *Pool) ConnStatuses() []ConnStatus {
	p.poolMutex.RLock()
	defer p.poolMutex.RUnlock()

	stat := make([]ConnStatus, 0, len(p.connections))
	for _, conn := range p.connections {
		stat = append(stat, ConnStatus{
			ID:       conn.id,
			UseCount: conn.GetUseCount(),
			LastUsed: conn.GetLastUsed(),
			Busy:     conn.IsBusy(),
		})
	}
	sort.Slice(stat, func(i, j int) bool { return stat[i].ID < stat[j].ID })
	return stat
}

func (p *Pool) ActiveCount() int {
	p.poolMutex.RLock()
	defer p.poolMutex.RUnlock()

	return p.activeCount
}

// CloseConnections closes all connections
func (p *Pool) CloseConnections() {
	p.poolMutex.Lock()
	defer p.poolMutex.Unlock()

	for _, conn := range p.connections {
		p.stopWorker(conn)
	}
	p.connections = nil
	p.activeCount = 0
}

// Close shuts down the pool and all connections
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		close(p.shutdown)
		p.CloseConnections()
	})

	return nil
}

func (p *Pool) cleanup() {
	p.poolMutex.Lock()
	defer p.poolMutex.Unlock()

	if p.activeCount <= p.cfg.MinPoolSize {
		return
	}

	now := time.Now()
	for _, conn := range append([]*Connection(nil), p.connections...) {
		if p.activeCount <= p.cfg.MinPoolSize {
			break
		}

		conn.mutex.RLock()
		idle := !conn.busy && now.Sub(conn.lastUsed) > p.cfg.IdleTimeout
		conn.mutex.RUnlock()

		if idle {
			select {
			case c := <-p.freeConn:
				if c.id == conn.id {
					p.closeConnection(conn)
				} else {
					p.freeConn <- c
				}
			default:
			}
		}
	}
}

// GetConnection acquires a connection from the pool. A new connection is
// created right away when none is free and the pool is below its maximum.
func (p *Pool) GetConnection() (*Connection, error) {
	select {
	case conn := <-p.freeConn:
		return p.acquire(conn), nil
	case <-p.shutdown:
		return nil, errPoolShutdown
	default:
	}

	p.poolMutex.RLock()
	canCreate := p.activeCount < p.cfg.MaxPoolSize
	p.poolMutex.RUnlock()

	if canCreate {
		if err := p.createConnection(); err != nil && !errors.Is(err, errPoolFull) {
			return nil, fmt.Errorf("failed to create new connection: %w", err)
		}
	}

	select {
	case conn := <-p.freeConn:
		return p.acquire(conn), nil
	case <-time.After(p.cfg.WaitConnTimeout):
		return nil, fmt.Errorf("timeout waiting for WMI connection")
	case <-p.shutdown:
		return nil, errPoolShutdown
	}
}

func (p *Pool) acquire(conn *Connection) *Connection {
	conn.mutex.Lock()
	conn.busy = true
	conn.lastUsed = time.Now()
	conn.useCount++
	conn.mutex.Unlock()
	p.logger.Debugf("Reusing connection %d", conn.id)
	return conn
}

// ReleaseConnection returns a connection to the pool
func (p *Pool) ReleaseConnection(conn *Connection) {
	conn.mutex.Lock()
	conn.busy = false
	conn.lastUsed = time.Now()
	conn.mutex.Unlock()

	select {
	case p.freeConn <- conn:
		p.logger.Debugf("Released connection %d back to pool", conn.id)
	default:
		p.logger.Debugf("Pool full, closing connection %d", conn.id)
		p.poolMutex.Lock()
		p.closeConnection(conn)
		p.poolMutex.Unlock()
	}
}

// createConnection creates a new WMI connection
func (p *Pool) createConnection() error {
	p.createMutex.Lock()
	defer p.createMutex.Unlock()

	p.poolMutex.Lock()
	defer p.poolMutex.Unlock()

	if p.activeCount >= p.cfg.MaxPoolSize {
		return errPoolFull
	}

	conn := &Connection{
		id:       p.nextID,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		commands: make(chan func(), 100),
		lastUsed: time.Now(),
	}
	p.nextID++

	ready := make(chan error, 1)
	conn.wg.Add(1)
	go conn.wmiWorker(p.cfg, ready, p.logger)

	if err := <-ready; err != nil {
		return fmt.Errorf("failed to initialize WMI connection %d: %w", conn.id, err)
	}

	p.connections = append(p.connections, conn)
	p.activeCount++

	select {
	case p.freeConn <- conn:
		p.logger.Infof("Created WMI connection %d, total active: %d", conn.id, p.activeCount)
	default:
	}

	return nil
}

// stopWorker signals the worker to quit and waits for it with a timeout.
func (p *Pool) stopWorker(conn *Connection) {
	conn.quitOnce.Do(func() { close(conn.quit) })

	done := make(chan struct{})
	go func() {
		conn.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.cfg.ConnCloseTimeout):
		p.logger.Warnf("WMI connection %d worker shutdown timeout", conn.id)
	}
}

// closeConnection stops the worker and drops the connection. The caller
// holds poolMutex.
func (p *Pool) closeConnection(conn *Connection) {
	p.stopWorker(conn)

	for i, c := range p.connections {
		if c.id == conn.id {
			p.connections = append(p.connections[:i], p.connections[i+1:]...)
			p.activeCount--
			p.logger.Infof("Closed WMI connection %d, remaining: %d", conn.id, p.activeCount)
			break
		}
	}
}

// cleanupIdleConnections removes idle connections
func (p *Pool) cleanupIdleConnections() {
	ticker := time.NewTicker(p.cfg.CleanupIdleConn)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cleanup()
		case <-p.shutdown:
			return
		}
	}
}
