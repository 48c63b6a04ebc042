package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
)

// serverConfig is the auditd configuration file layout.
type serverConfig struct {
	// Listen is the HTTP listen address. Default ":8080".
	Listen string `yaml:"listen"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Audit struct {
		Enabled bool `yaml:"enabled"`

		// RefreshInterval is a Go duration string, e.g. "30m".
		RefreshInterval string `yaml:"refreshInterval"`
		Workers         int    `yaml:"workers"`
		QueueSize       int    `yaml:"queueSize"`
		MaxBodyCapture  int    `yaml:"maxBodyCapture"`

		// RuleFile is the YAML rule document served as the rule source.
		RuleFile string `yaml:"ruleFile"`

		// WatchRules triggers an immediate refresh when the rule file
		// changes, instead of waiting for the next tick.
		WatchRules bool `yaml:"watchRules"`

		Store struct {
			// Driver is sqlite, jsonl, or memory.
			Driver string `yaml:"driver"`

			// Path is the database or log file location (sqlite, jsonl).
			Path string `yaml:"path"`

			// MemoryCapacity bounds the in-memory record buffer that
			// backs the records inspection endpoint.
			MemoryCapacity int `yaml:"memoryCapacity"`
		} `yaml:"store"`
	} `yaml:"audit"`
}

func defaultServerConfig() serverConfig {
	var cfg serverConfig
	cfg.Listen = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Audit.Enabled = true
	cfg.Audit.RuleFile = "rules.yaml"
	cfg.Audit.WatchRules = true
	cfg.Audit.Store.Driver = "memory"
	return cfg
}

// loadServerConfig reads and validates the configuration file. A missing
// path yields the defaults.
func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	switch cfg.Audit.Store.Driver {
	case "", "memory", "sqlite", "jsonl":
	default:
		return cfg, fmt.Errorf("config: unknown store driver %q", cfg.Audit.Store.Driver)
	}
	if _, err := cfg.auditConfig(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// auditConfig converts the file representation into the audit package's
// Config.
func (c serverConfig) auditConfig() (*audit.Config, error) {
	cfg := &audit.Config{
		Enabled:        c.Audit.Enabled,
		Workers:        c.Audit.Workers,
		QueueSize:      c.Audit.QueueSize,
		MaxBodyCapture: c.Audit.MaxBodyCapture,
	}
	if c.Audit.RefreshInterval != "" {
		d, err := time.ParseDuration(c.Audit.RefreshInterval)
		if err != nil {
			return nil, fmt.Errorf("config: refreshInterval: %w", err)
		}
		cfg.RefreshInterval = d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
