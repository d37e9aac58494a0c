package gowinsvc

import (
	"sync"
	"time"

	"github.com/go-ole/go-ole"
)

// Connection represents a single WMI connection bound to one OS thread
type Connection struct {
	id       int
	services *ole.IDispatch // SWbemServices
	wg       sync.WaitGroup
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{} // closed when the worker exits
	commands chan func()
	lastUsed time.Time
	useCount int64
	busy     bool
	mutex    sync.RWMutex
}

// GetID returns the connection ID
func (c *Connection) GetID() int {
	return c.id
}

// IsBusy returns whether the connection is currently busy
func (c *Connection) IsBusy() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.busy
}

// GetLastUsed returns when the connection was last used
func (c *Connection) GetLastUsed() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastUsed
}

func (c *Connection) GetUseCount() int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.useCount
}

// result carries the outcome of a closure run on the worker thread.
type result struct {
	value any
	err   error
}

// Do runs fn on the connection's COM thread with the SWbemServices object.
func (c *Connection) Do(fn func(services *ole.IDispatch) (any, error)) (any, error) {
	resultChan := make(chan result, 1)

	select {
	case c.commands <- func() {
		v, err := fn(c.services)
		resultChan <- result{value: v, err: err}
	}:
	case <-c.quit:
		return nil, errConnClosed
	}

	select {
	case res := <-resultChan:
		return res.value, res.err
	case <-c.done:
		return nil, errConnClosed
	}
}
