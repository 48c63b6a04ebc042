package audit

import (
	"runtime"
	"time"
)

// Config defines the tunables of the audit pipeline.
type Config struct {
	// Enabled determines whether the interception pipeline is active at
	// all. When false the middleware passes requests straight through.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// RefreshInterval is how often the rule snapshot is re-pulled from the
	// rule source. Default: 30 minutes.
	RefreshInterval time.Duration `json:"refreshInterval,omitempty" yaml:"refreshInterval,omitempty"`

	// Workers sizes the sink's persistence worker pool.
	// Default: runtime.GOMAXPROCS(0).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// QueueSize bounds the sink's submission queue. Default: 1024.
	QueueSize int `json:"queueSize,omitempty" yaml:"queueSize,omitempty"`

	// MaxBodyCapture limits, in bytes, how much of a request or response
	// body is captured into a record. Default: 64 KiB.
	MaxBodyCapture int `json:"maxBodyCapture,omitempty" yaml:"maxBodyCapture,omitempty"`
}

// Defaults.
const (
	DefaultRefreshInterval = 30 * time.Minute
	DefaultQueueSize       = 1024
	DefaultMaxBodyCapture  = 64 << 10
)

// DefaultWorkers returns the default sink pool size, one worker per
// available CPU.
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RefreshInterval: DefaultRefreshInterval,
		Workers:         DefaultWorkers(),
		QueueSize:       DefaultQueueSize,
		MaxBodyCapture:  DefaultMaxBodyCapture,
	}
}

// normalized returns a copy with zero fields replaced by defaults.
func (c *Config) normalized() Config {
	out := Config{Enabled: true}
	if c != nil {
		out = *c
	}
	if out.RefreshInterval <= 0 {
		out.RefreshInterval = DefaultRefreshInterval
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers()
	}
	if out.QueueSize <= 0 {
		out.QueueSize = DefaultQueueSize
	}
	if out.MaxBodyCapture <= 0 {
		out.MaxBodyCapture = DefaultMaxBodyCapture
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.RefreshInterval < 0 {
		return &ConfigError{Field: "refreshInterval", Message: "must not be negative"}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Message: "must not be negative"}
	}
	if c.QueueSize < 0 {
		return &ConfigError{Field: "queueSize", Message: "must not be negative"}
	}
	if c.MaxBodyCapture < 0 {
		return &ConfigError{Field: "maxBodyCapture", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "audit config: " + e.Field + ": " + e.Message
}
