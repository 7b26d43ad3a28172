// Package config loads the node agent's runtime configuration: error-store
// options per child, metrics bind address, and the mount enumerator binary
// path. Format and location are deliberately out of the lifecycle core's
// scope (spec.md Non-goals) but still carried here the way a real agent
// needs to start up.
package config

import (
	"fmt"
	"os"

	"github.com/nexus-storage/nexus-core/pkg/nexus"
	"gopkg.in/yaml.v3"
)

// Config is the node agent's top-level configuration.
type Config struct {
	// ErrStore controls whether newly opened children get an error-history
	// ring, and its size.
	ErrStore nexus.ErrStoreOpts `yaml:"err_store"`

	// MetricsAddr is the bind address for the Prometheus /metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// FindmntBinary overrides the mount enumerator binary name, mainly for
	// tests that substitute a stub on PATH.
	FindmntBinary string `yaml:"findmnt_binary"`

	// BreakerEnabled toggles the per-child circuit breaker guarding
	// open() claim attempts.
	BreakerEnabled bool `yaml:"breaker_enabled"`
}

// Default returns the configuration a fresh agent starts with absent an
// on-disk file.
func Default() Config {
	return Config{
		ErrStore:       nexus.ErrStoreOpts{Enable: true, Size: 256},
		MetricsAddr:    ":9100",
		FindmntBinary:  "findmnt",
		BreakerEnabled: true,
	}
}

// Load reads a YAML configuration file, falling back to Default() values
// for any field the file leaves unset by starting from Default() and
// unmarshalling over it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
