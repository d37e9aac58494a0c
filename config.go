package gowinsvc

import "time"

const (
	defMinPoolSize        = 1
	defMaxPoolSize        = 2
	defIdleTimeoutSec     = 5 * 60
	defComObject          = "WbemScripting.SWbemLocator"
	defServer             = "."
	defNamespace          = `root\cimv2`
	defWaitConnTimeoutSec = 10
	defCleanupIdleConnSec = 60
	defConnCloseTimeout   = 30
)

// Config holds configuration for the WMI connection pool
type Config struct {
	Server           string // "." is the local machine
	Namespace        string // root\cimv2
	User             string
	Password         string
	MaxPoolSize      int
	MinPoolSize      int
	IdleTimeout      time.Duration
	COMObjectID      string // WbemScripting.SWbemLocator
	WaitConnTimeout  time.Duration
	CleanupIdleConn  time.Duration
	ConnCloseTimeout time.Duration
}

func (cfg *Config) SetDefaults() {
	if cfg.Server == "" {
		cfg.Server = defServer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = defNamespace
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = defMaxPoolSize
	}
	if cfg.MinPoolSize < 0 {
		cfg.MinPoolSize = defMinPoolSize
	}
	if cfg.MinPoolSize > cfg.MaxPoolSize {
		cfg.MinPoolSize = cfg.MaxPoolSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defIdleTimeoutSec * time.Second
	}
	if cfg.WaitConnTimeout <= 0 {
		cfg.WaitConnTimeout = defWaitConnTimeoutSec * time.Second
	}
	if cfg.CleanupIdleConn <= 0 {
		cfg.CleanupIdleConn = defCleanupIdleConnSec * time.Second
	}
	if cfg.ConnCloseTimeout <= 0 {
		cfg.ConnCloseTimeout = defConnCloseTimeout * time.Second
	}
	if cfg.COMObjectID == "" {
		cfg.COMObjectID = defComObject
	}
}
