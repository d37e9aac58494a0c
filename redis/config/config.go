// Package config is redis broker configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Redis configuration
	Redis RedisConfig `json:"redis"`
	// WMI configuration
	WMI WMIConfig `json:"wmi"`
	// Service manager configuration
	Manager ManagerConfig `json:"manager"`
	// Common configuration
	LogLevel        string   `json:"log_level"`
	LogFormat       string   `json:"log_format"`
	LogToFile       bool     `json:"log_to_file"`
	LogDir          string   `json:"log_dir"`
	ShutdownTimeout Duration `json:"shutdownTimeout"`
}

type RedisConfig struct {
	// Connection settings
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
	DB       int    `json:"db"`

	// Queue settings
	CommandQueue  string `json:"commandQueue"`
	ResponseQueue string `json:"responseQueue"`

	// Timeouts
	ReadTimeout  Duration `json:"readTimeout"`
	WriteTimeout Duration `json:"writeTimeout"`
	BLPopTimeout Duration `json:"blpopTimeout"`

	// Pool settings
	MaxIdle   int `json:"maxIdle"`
	MaxActive int `json:"maxActive"`
}

type WMIConfig struct {
	Server      string `json:"server"`
	Namespace   string `json:"namespace"`
	User        string `json:"user"`
	Password    string `json:"password"`
	MaxPoolSize int    `json:"maxPoolSize"`
	MinPoolSize int    `json:"minPoolSize"`
	COMObjectID string `json:"comObjectId"`

	IdleTimeout      Duration `json:"idleTimeout"`
	WaitConnTimeout  Duration `json:"waitConnTimeout"`
	CleanupIdleConn  Duration `json:"cleanupIdleConn"`
	ConnCloseTimeout Duration `json:"connCloseTimeout"`
}

type ManagerConfig struct {
	WaitTimeout  Duration `json:"waitTimeout"`
	PollInterval Duration `json:"pollInterval"`
}

// Duration accepts seconds as a number or a Go duration string.
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
		d.Duration = time.Duration(value * float64(time.Second))
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

// Addr returns host:port of the Redis server.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ReadConf reads configuration from JSON file
func (c *Config) ReadConf(filename string) error {
	file, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return c.Parse(file)
}

// Parse reads configuration from JSON data and fills in defaults.
func (c *Config) Parse(data []byte) error {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("json.Unmarshal():%v", err)
	}
	c.SetDefaults()
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

	if c.ShutdownTimeout.Duration == 0 {
		c.ShutdownTimeout.Duration = defShutdownTimeout
	}

	if c.Redis.Host == "" {
		c.Redis.Host = defRedisHost
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = defRedisPort
	}
	if c.Redis.CommandQueue == "" {
		c.Redis.CommandQueue = defCommandQueue
	}

	if c.Redis.ResponseQueue == "" {
		c.Redis.ResponseQueue = defResponseQueue
	}
	if c.Redis.ReadTimeout.Duration == 0 {
		c.Redis.ReadTimeout.Duration = defReadTimeout
	}
	if c.Redis.WriteTimeout.Duration == 0 {
		c.Redis.WriteTimeout.Duration = defWriteTimeout
	}
	if c.Redis.BLPopTimeout.Duration == 0 {
		c.Redis.BLPopTimeout.Duration = defBLPopTimeout
	}

	if c.Manager.WaitTimeout.Duration == 0 {
		c.Manager.WaitTimeout.Duration = defWaitTimeout
	}
	if c.Manager.PollInterval.Duration == 0 {
		c.Manager.PollInterval.Duration = defPollInterval
	}
}

// Default configuration values
const (
	DefLogDir          = "Logs"
	DefLogFilePrefix   = "gowinsvc-redis"
	defLogLevel        = "info"
	defLogFormat       = "text"
	defShutdownTimeout = 10 * time.Second

	defRedisHost     = "localhost"
	defRedisPort     = 6379
	defCommandQueue  = "winsvc:commands"
	defResponseQueue = "winsvc:responses"
	defReadTimeout   = 5 * time.Second
	defWriteTimeout  = 5 * time.Second
	defBLPopTimeout  = 1 * time.Second

	defWaitTimeout  = 10 * time.Second
	defPollInterval = 250 * time.Millisecond
)
