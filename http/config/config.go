// Package config is the HTTP daemon configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	DefLogDir          = "Logs"
	DefLogFilePrefix   = "gowinsvc-http"
	defLogLevel        = "info"
	defLogFormat       = "text"
	defShutdownTimeout = 10 * time.Second
	defAuthRealm       = "gowinsvc"
)

const (
	// HTTP defaults
	defHTTPAddr         = ":8080"
	defHTTPReadTimeout  = 30 * time.Second
	defHTTPWriteTimeout = 60 * time.Second
	defHTTPIdleTimeout  = 60 * time.Second
)

const (
	defWaitTimeout  = 10 * time.Second
	defPollInterval = 250 * time.Millisecond
)

type WMIConfig struct {
	Server           string   `json:"server"`    // "." is the local machine
	Namespace        string   `json:"namespace"` // root\cimv2
	User             string   `json:"user"`
	Password         string   `json:"password"`
	MaxPoolSize      int      `json:"maxPoolSize"`
	MinPoolSize      int      `json:"minPoolSize"`
	IdleTimeout      Duration `json:"idleTimeout"`
	COMObjectID      string   `json:"comObjectID"` // WbemScripting.SWbemLocator
	WaitConnTimeout  Duration `json:"waitConnTimeout"`
	CleanupIdleConn  Duration `json:"cleanupIdleConn"`
	ConnCloseTimeout Duration `json:"connCloseTimeout"`
}

type ManagerConfig struct {
	WaitTimeout  Duration `json:"waitTimeout"`
	PollInterval Duration `json:"pollInterval"`
}

type Auth struct {
	RequireAuth bool   `json:"requireAuth"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Realm       string `json:"realm"`
}

type Config struct {
	LogLevel        string   `json:"logLevel"`
	LogFormat       string   `json:"logFormat"` // text, json or line
	LogToFile       bool     `json:"logToFile"`
	LogDir          string   `json:"logDir"`
	ShutdownTimeout Duration `json:"shutdownTimeout"`

	Auth Auth `json:"auth"`

	HTTPAddr     string   `json:"httpAddr"`
	ReadTimeout  Duration `json:"readTimeout"`
	WriteTimeout Duration `json:"writeTimeout"`
	IdleTimeout  Duration `json:"idleTimeout"`
	Metrics      *bool    `json:"metrics"`

	WMI     WMIConfig     `json:"wmi"`
	Manager ManagerConfig `json:"manager"`
}

// MetricsEnabled reports whether /metrics is served. It is on unless
// disabled explicitly.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics == nil || *c.Metrics
}

// ReadConf reads configuration from json file
func (c *Config) ReadConf(fileName string) error {
	file, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("os.ReadFile(): %v", err)
	}
	return c.Parse(file)
}

// Parse reads configuration from json data and fills in defaults.
func (c *Config) Parse(data []byte) error {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("json.Unmarshal():%v", err)
	}
	c.SetDefaults()

	if c.Auth.RequireAuth && c.Auth.Username == "" {
		return fmt.Errorf("auth.username is required when auth.requireAuth is set")
	}
	return nil
}

func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = defLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defLogFormat
	}
	if c.LogDir == "" {
		c.LogDir = DefLogDir
	}

	if c.Auth.Realm == "" {
		c.Auth.Realm = defAuthRealm
	}

	if c.ShutdownTimeout.Duration == 0 {
		c.ShutdownTimeout.Duration = defShutdownTimeout
	}

	if c.HTTPAddr == "" {
		c.HTTPAddr = defHTTPAddr
	}

	if c.ReadTimeout.Duration == 0 {
		c.ReadTimeout.Duration = defHTTPReadTimeout
	}
	if c.WriteTimeout.Duration == 0 {
		c.WriteTimeout.Duration = defHTTPWriteTimeout
	}
	if c.IdleTimeout.Duration == 0 {
		c.IdleTimeout.Duration = defHTTPIdleTimeout
	}

	if c.Manager.WaitTimeout.Duration == 0 {
		c.Manager.WaitTimeout.Duration = defWaitTimeout
	}
	if c.Manager.PollInterval.Duration == 0 {
		c.Manager.PollInterval.Duration = defPollInterval
	}
}

// Duration is a wrapper for time.Duration with custom JSON unmarshaling
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// If it's a number, assume it's seconds
		d.Duration = time.Duration(value * float64(time.Second))
		return nil
	case string:
		// Parse duration string (e.g., "30s", "2m", "1h")
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
