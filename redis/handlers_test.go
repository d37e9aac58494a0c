package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/redis/config"
	"github.com/dronm/gowinsvc/service"
	"github.com/dronm/gowinsvc/startmode"
)

type fakeServices struct {
	calls []string
}

func (f *fakeServices) List(pattern string) ([]service.Summary, error) {
	f.calls = append(f.calls, "list "+pattern)
	return []service.Summary{{Name: "Spooler", State: "Running", StartupType: "Automatic"}}, nil
}

func (f *fakeServices) Get(name string) (service.Item, error) {
	if name != "Spooler" {
		return service.Item{}, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	return service.Item{Name: name, StartupType: "Automatic"}, nil
}

func (f *fakeServices) Exists(name string) (bool, error) {
	return name == "Spooler", nil
}

func (f *fakeServices) ExistsWithMode(name, modeText string) (bool, error) {
	m, err := startmode.Parse(modeText)
	if err != nil {
		return false, err
	}
	return name == "Spooler" && m == startmode.Automatic, nil
}

func (f *fakeServices) Start(_ context.Context, name string) (service.Item, error) {
	f.calls = append(f.calls, "start "+name)
	return service.Item{Name: name, State: "Running"}, nil
}

func (f *fakeServices) Stop(_ context.Context, name string) (service.Item, error) {
	f.calls = append(f.calls, "stop "+name)
	return service.Item{}, fmt.Errorf("%w: stop %s while Stopped", service.ErrInvalidState, name)
}

func (f *fakeServices) Restart(_ context.Context, name string) (service.Item, error) {
	f.calls = append(f.calls, "restart "+name)
	return service.Item{Name: name, State: "Running"}, nil
}

func (f *fakeServices) ChangeStartup(_ context.Context, name, text string) (service.StartupChange, error) {
	f.calls = append(f.calls, "startup "+name+" "+text)
	next, err := startmode.Merge(text, startmode.Automatic)
	if err != nil {
		return service.StartupChange{}, err
	}
	return service.StartupChange{Service: name, From: "Automatic", To: startmode.Describe(next), Changed: true}, nil
}

func newTestServer(t *testing.T) (*RedisServer, *fakeServices) {
	t.Helper()
	logger.Logger = logrus.New()
	logger.Logger.SetOutput(io.Discard)

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Redis.BLPopTimeout.Duration = 50 * time.Millisecond

	s := NewRedisServer(cfg)
	f := &fakeServices{}
	s.svcs = f
	t.Cleanup(s.cancel)
	return s, f
}

func run(s *RedisServer, command, params string) *RedisResponse {
	cmd := &RedisCommand{Command: command, RequestID: "r1"}
	if params != "" {
		cmd.Params = json.RawMessage(params)
	}
	return s.executeCommand(cmd)
}

func TestExecuteCommand(t *testing.T) {
	s, f := newTestServer(t)

	resp := run(s, "health", "")
	assert.True(t, resp.Success)
	assert.Equal(t, "OK", resp.Payload)
	assert.Equal(t, "r1", resp.RequestID)

	resp = run(s, "list", `{"pattern": "spool*"}`)
	require.True(t, resp.Success)
	assert.Len(t, resp.Payload, 1)

	resp = run(s, "get", `{"name": "Nope"}`)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "service not found")

	resp = run(s, "exists", `{"name": "Spooler", "mode": "auto"}`)
	assert.Equal(t, true, resp.Payload)

	resp = run(s, "restart", `{"name": "Spooler"}`)
	assert.True(t, resp.Success)

	resp = run(s, "stop", `{"name": "Spooler"}`)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "not valid in current service state")

	resp = run(s, "startup", `{"name": "Spooler", "mode": "-Auto, +Dis"}`)
	require.True(t, resp.Success)
	assert.Equal(t, "Disabled", resp.Payload.(service.StartupChange).To)

	assert.Equal(t, []string{"list spool*", "restart Spooler", "stop Spooler", "startup Spooler -Auto, +Dis"}, f.calls)
}

func TestExecuteCommandErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		command, params, want string
	}{
		{"start", ``, errNameRequired.Error()},
		{"startup", `{"name": "Spooler"}`, errModeRequired.Error()},
		{"startup", `{"name": "Spooler", "mode": "+Soon"}`, `"+Soon"`},
		{"reboot", `{"name": "Spooler"}`, "unknown command: reboot"},
		{"reboot", ``, "unknown command: reboot"},
		{"get", `[1, 2]`, "invalid params"},
		{"canonicalize", `{"text": "auto, sometimes"}`, `"sometimes"`},
	}
	for _, tt := range tests {
		resp := run(s, tt.command, tt.params)
		assert.False(t, resp.Success, tt.command)
		assert.Contains(t, resp.Error, tt.want, tt.command)
	}
}

func TestCanonicalizeCommand(t *testing.T) {
	s, _ := newTestServer(t)
	resp := run(s, "canonicalize", `{"text": " man ,delayedauto"}`)
	require.True(t, resp.Success)
	assert.Equal(t, "Manual, Delayed", resp.Payload)
}

func TestPoolStopped(t *testing.T) {
	s, _ := newTestServer(t)

	require.NoError(t, s.stopPool())
	resp := run(s, "list", "")
	assert.Equal(t, errPoolNotInitialized.Error(), resp.Error)

	resp = run(s, "status", "")
	assert.Equal(t, "stopped", resp.Payload.(map[string]any)["status"])

	resp = run(s, "pool_stop", "")
	assert.False(t, resp.Success)

	// health does not need the pool
	assert.True(t, run(s, "health", "").Success)
}

func TestGenerateRequestID(t *testing.T) {
	a, b := generateRequestID(), generateRequestID()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^req_[0-9a-f-]{36}$`, a)
}

func TestQueueRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	s, f := newTestServer(t)
	s.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer s.redis.Close()

	s.wg.Add(1)
	go s.processCommands()

	ctx := context.Background()
	require.NoError(t, s.redis.RPush(ctx, s.cfg.Redis.CommandQueue,
		`{"command": "start", "params": {"name": "Spooler"}, "request_id": "abc"}`).Err())
	require.NoError(t, s.redis.RPush(ctx, s.cfg.Redis.CommandQueue,
		`{"command": "health", "channel": "replies:1"}`).Err())

	res, err := s.redis.BLPop(ctx, 2*time.Second, s.cfg.Redis.ResponseQueue).Result()
	require.NoError(t, err)
	var resp RedisResponse
	require.NoError(t, json.Unmarshal([]byte(res[1]), &resp))
	assert.Equal(t, "abc", resp.RequestID)
	assert.True(t, resp.Success)

	res, err = s.redis.BLPop(ctx, 2*time.Second, "replies:1").Result()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(res[1]), &resp))
	assert.Equal(t, "replies:1", resp.Channel)
	assert.Equal(t, "OK", resp.Payload)
	assert.NotEmpty(t, resp.RequestID)

	s.cancel()
	s.wg.Wait()
	assert.Equal(t, []string{"start Spooler"}, f.calls)
}

func redisAddr(t *testing.T, mr *miniredis.Miniredis) (string, int) {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return mr.Host(), port
}

func TestStartClosesClientWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	s, _ := newTestServer(t)
	s.cfg.Redis.Host, s.cfg.Redis.Port = redisAddr(t, mr)
	mr.Close()

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
	assert.Nil(t, s.client())

	// a failed start can be retried
	err = s.Start()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "already running")
	assert.Nil(t, s.client())
}
