package gowinsvc

import (
	"testing"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// newTestPool returns a pool holding connections without COM workers.
func newTestPool(conns ...*Connection) *Pool {
	cfg := &Config{MaxPoolSize: 4}
	cfg.SetDefaults()

	p := &Pool{
		cfg:      cfg,
		freeConn: make(chan *Connection, cfg.MaxPoolSize),
		shutdown: make(chan struct{}),
		logger:   nopLogger{},
	}
	for _, c := range conns {
		p.connections = append(p.connections, c)
		p.activeCount++
		p.freeConn <- c
	}
	return p
}

func deadConn(id int) *Connection {
	done := make(chan struct{})
	close(done)
	return &Connection{
		id:       id,
		quit:     make(chan struct{}),
		done:     done,
		commands: make(chan func(), 1),
		lastUsed: time.Now(),
	}
}

func TestExecuteDropsDeadConnection(t *testing.T) {
	p := newTestPool(deadConn(7))

	_, err := p.Execute(func(conn *Connection) (any, error) {
		return conn.Do(func(*ole.IDispatch) (any, error) {
			return "never", nil
		})
	})
	require.ErrorIs(t, err, errConnClosed)
	assert.Equal(t, 0, p.ActiveCount())
	assert.Empty(t, p.ConnStatuses())
}

func TestExecuteReleasesConnection(t *testing.T) {
	p := newTestPool(deadConn(1))

	res, err := p.Execute(func(conn *Connection) (any, error) {
		assert.True(t, conn.IsBusy())
		return conn.GetID(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res)

	st := p.ConnStatuses()
	require.Len(t, st, 1)
	assert.False(t, st[0].Busy)
	assert.Equal(t, int64(1), st[0].UseCount)
}

func TestConnStatusesOrdered(t *testing.T) {
	p := newTestPool(deadConn(3), deadConn(1), deadConn(2))

	st := p.ConnStatuses()
	require.Len(t, st, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{st[0].ID, st[1].ID, st[2].ID})
}
