package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronm/gowinsvc/http/config"
	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/service"
	"github.com/dronm/gowinsvc/startmode"
)

type fakeServices struct {
	pattern string
	calls   []string
}

func (f *fakeServices) List(pattern string) ([]service.Summary, error) {
	f.pattern = pattern
	return []service.Summary{{Name: "Spooler", DisplayName: "Print Spooler", State: "Running", StartupType: "Automatic"}}, nil
}

func (f *fakeServices) Get(name string) (service.Item, error) {
	if name != "Spooler" {
		return service.Item{}, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	return service.Item{Name: "Spooler", State: "Running", StartupType: "Automatic"}, nil
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

func (f *fakeServices) control(op, name string) (service.Item, error) {
	f.calls = append(f.calls, op+" "+name)
	if name != "Spooler" {
		return service.Item{}, fmt.Errorf("%w: %s while Stopped", service.ErrInvalidState, op)
	}
	return service.Item{Name: name, State: "Running"}, nil
}

func (f *fakeServices) Start(_ context.Context, name string) (service.Item, error) {
	return f.control("start", name)
}

func (f *fakeServices) Stop(_ context.Context, name string) (service.Item, error) {
	return f.control("stop", name)
}

func (f *fakeServices) Restart(_ context.Context, name string) (service.Item, error) {
	return f.control("restart", name)
}

func (f *fakeServices) ChangeStartup(_ context.Context, name, text string) (service.StartupChange, error) {
	f.calls = append(f.calls, "startup "+name+" "+text)
	next, err := startmode.Merge(text, startmode.Automatic)
	if err != nil {
		return service.StartupChange{}, err
	}
	return service.StartupChange{Service: name, From: "Automatic", To: startmode.Describe(next), Changed: true}, nil
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fakeServices) {
	t.Helper()
	logger.Logger = logrus.New()
	logger.Logger.SetOutput(io.Discard)

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.SetDefaults()

	s := NewServer(cfg)
	f := &fakeServices{}
	s.svcs = f
	return s, f
}

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec, resp := do(t, s, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "OK", resp.Payload)
}

func TestListServices(t *testing.T) {
	s, f := newTestServer(t, nil)
	rec, resp := do(t, s, "GET", "/services?pattern=spool*", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "spool*", f.pattern)

	list, ok := resp.Payload.([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "Print Spooler", list[0].(map[string]any)["display_name"])
}

func TestGetService(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec, resp := do(t, s, "GET", "/services/Spooler", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Automatic", resp.Payload.(map[string]any)["startup_type"])

	rec, resp = do(t, s, "GET", "/services/Nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "service not found")
}

func TestExists(t *testing.T) {
	s, _ := newTestServer(t, nil)

	_, resp := do(t, s, "GET", "/services/Spooler/exists", "")
	assert.Equal(t, true, resp.Payload)

	_, resp = do(t, s, "GET", "/services/Spooler/exists?mode=man", "")
	assert.Equal(t, false, resp.Payload)

	rec, resp := do(t, s, "GET", "/services/Spooler/exists?mode=often", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, `"often"`)
}

func TestControl(t *testing.T) {
	s, f := newTestServer(t, nil)

	rec, _ := do(t, s, "POST", "/services/Spooler/restart", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := do(t, s, "POST", "/services/Fax/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, resp.Error, "not valid in current service state")

	rec, resp = do(t, s, "GET", "/services/Spooler/stop", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", resp.Error)

	rec, resp = do(t, s, "DELETE", "/services/Spooler/startup", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, resp.Success)

	assert.Equal(t, []string{"restart Spooler", "start Fax"}, f.calls)
}

func TestChangeStartup(t *testing.T) {
	s, f := newTestServer(t, nil)

	rec, resp := do(t, s, "PUT", "/services/Spooler/startup", `{"mode": "-Auto,+Man"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Manual", resp.Payload.(map[string]any)["to"])
	assert.Equal(t, []string{"startup Spooler -Auto,+Man"}, f.calls)

	rec, resp = do(t, s, "PUT", "/services/Spooler/startup", `{"mode": "+Sometimes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "+Sometimes")

	rec, _ = do(t, s, "PUT", "/services/Spooler/startup", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, "PUT", "/services/Spooler/startup", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartModes(t *testing.T) {
	s, _ := newTestServer(t, nil)

	_, resp := do(t, s, "GET", "/startmodes", "")
	list := resp.Payload.([]any)
	require.Len(t, list, 5)
	first := list[0].(map[string]any)
	assert.Equal(t, "Automatic", first["canonical"])
	assert.Equal(t, []any{"Automatic", "Auto"}, first["aliases"])

	rec, resp := do(t, s, "POST", "/startmodes/canonicalize", `{"text": "auto, delay"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Automatic, Delayed", resp.Payload)

	rec, _ = do(t, s, "POST", "/startmodes/canonicalize", `{"text": "auto, soon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPoolNotInitialized(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.svcs = nil

	rec, resp := do(t, s, "GET", "/services", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errPoolNotInitialized, resp.Error)

	_, resp = do(t, s, "GET", "/status", "")
	assert.Equal(t, "stopped", resp.Payload.(map[string]any)["status"])

	rec, _ = do(t, s, "POST", "/pool/stop", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec, resp := do(t, s, "GET", "/nothing/here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", resp.Error)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, &config.Config{Auth: config.Auth{RequireAuth: true, Username: "admin", Password: "secret"}})

	rec, _ := do(t, s, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := do(t, s, "GET", "/services", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="gowinsvc"`, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "unauthorized", resp.Error)

	req := httptest.NewRequest("GET", "/services", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/services", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, "POST", "/services/Spooler/start", "")
	do(t, s, "GET", "/health", "")

	rec, _ := do(t, s, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `gowinsvc_service_operations_total{op="start",result="ok"} 1`)
	assert.Contains(t, body, `gowinsvc_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, body, "gowinsvc_wmi_connections 0")
}

func TestMetricsDisabled(t *testing.T) {
	off := false
	s, _ := newTestServer(t, &config.Config{Metrics: &off})
	rec, _ := do(t, s, "GET", "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotImplemented, statusCode(service.ErrUnsupported))
	assert.Equal(t, http.StatusGatewayTimeout, statusCode(fmt.Errorf("wrap: %w", service.ErrTimeout)))
	assert.Equal(t, http.StatusBadRequest, statusCode(service.ErrTriggerReadOnly))
	assert.Equal(t, http.StatusInternalServerError, statusCode(io.EOF))
}
