package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dronm/gowinsvc/flagcodec"
	"github.com/dronm/gowinsvc/service"
	"github.com/dronm/gowinsvc/startmode"
)

type fakeServices struct {
	calls  []string
	closed bool
}

func (f *fakeServices) List(pattern string) ([]service.Summary, error) {
	f.calls = append(f.calls, "list "+pattern)
	return []service.Summary{
		{Name: "Spooler", DisplayName: "Print Spooler", State: "Running", StartupType: "Automatic"},
		{Name: "wuauserv", DisplayName: "Windows Update", State: "Stopped", StartupType: "Manual (Trigger)"},
	}, nil
}

func (f *fakeServices) Get(name string) (service.Item, error) {
	if name != "Spooler" {
		return service.Item{}, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	return service.Item{Name: "Spooler", DisplayName: "Print Spooler", State: "Running", StartupType: "Automatic", Dependencies: []string{"RPCSS", "http"}}, nil
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
	return service.Item{Name: name, State: "Stopped"}, nil
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

func execute(t *testing.T, args ...string) (string, *fakeServices, error) {
	t.Helper()
	f := &fakeServices{}
	open := func(*viper.Viper) (Services, func(), error) {
		return f, func() { f.closed = true }, nil
	}

	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), f, err
}

func TestModes(t *testing.T) {
	out, _, err := execute(t, "modes")
	require.NoError(t, err)
	assert.Contains(t, out, "Automatic")
	assert.Contains(t, out, "Manual, Manualy, Man")
	assert.Contains(t, out, "Trigger, Triggered, TriggerStart")

	out, _, err = execute(t, "modes", "-o", "json")
	require.NoError(t, err)
	var rows []modeRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 5)
	assert.Equal(t, modeRow{Name: "Disabled", Value: 4, Aliases: []string{"Disabled", "Disable", "Dis"}}, rows[2])
}

func TestCanonicalize(t *testing.T) {
	out, _, err := execute(t, "canonicalize", "auto, delay")
	require.NoError(t, err)
	assert.Equal(t, "Automatic, Delayed\n", out)

	_, _, err = execute(t, "canonicalize", "auto,later")
	var tokErr *flagcodec.UnrecognizedTokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "later", tokErr.Token)
}

func TestList(t *testing.T) {
	out, f, err := execute(t, "list", "*s*")
	require.NoError(t, err)
	assert.Contains(t, out, "Print Spooler")
	assert.Contains(t, out, "Manual (Trigger)")
	assert.Equal(t, []string{"list *s*"}, f.calls)
	assert.True(t, f.closed)
}

func TestShowYAML(t *testing.T) {
	out, _, err := execute(t, "show", "Spooler", "--output", "yaml")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Print Spooler", got["display_name"])
	assert.Equal(t, []any{"RPCSS", "http"}, got["dependencies"])

	_, _, err = execute(t, "show", "Nope")
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestControl(t *testing.T) {
	for _, op := range []string{"start", "stop", "restart"} {
		out, f, err := execute(t, op, "Spooler", "-o", "json")
		require.NoError(t, err, op)
		assert.Equal(t, []string{op + " Spooler"}, f.calls)
		assert.Contains(t, out, `"name": "Spooler"`)
	}
}

func TestStartup(t *testing.T) {
	out, f, err := execute(t, "startup", "-o", "json", "Spooler", "--", "-Auto,+Man")
	require.NoError(t, err)
	assert.Equal(t, []string{"startup Spooler -Auto,+Man"}, f.calls)

	var change map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &change))
	assert.Equal(t, "Manual", change["to"])
}

func TestExists(t *testing.T) {
	out, _, err := execute(t, "exists", "Spooler")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, _, err = execute(t, "exists", "Spooler", "--mode", "disabled")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestBadOutput(t *testing.T) {
	_, _, err := execute(t, "modes", "-o", "xml")
	assert.EqualError(t, err, `unknown output format "xml"`)
}

func TestOutputFromEnv(t *testing.T) {
	t.Setenv("WINSVC_OUTPUT", "json")
	out, _, err := execute(t, "modes")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestRenderTableUnknownType(t *testing.T) {
	assert.Error(t, renderTable(&bytes.Buffer{}, 42))
}
