// Package config loads process configuration for the ingest engine, in
// the shape of the teacher's LoadConfig/Validate pair in this same
// package, but parsed with gopkg.in/yaml.v3 the way the teacher's own
// MasterConfig (formerly in master.go) loads operator-facing YAML
// instead of the machine-facing JSON the original Config used.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SymbolConfig is one tracked instrument. DepthMs is its depth-stream
// update interval in milliseconds. RestLimit is parsed but not read by the
// engine: reconciler snapshot fetches always request 1000 levels.
type SymbolConfig struct {
	Symbol    string `yaml:"symbol"`
	DepthMs   int    `yaml:"depth_ms"`
	RestLimit int    `yaml:"rest_limit"`
}

// ArchiveConfig controls the archiver bridge's output location.
type ArchiveConfig struct {
	Directory       string `yaml:"directory"`
	ObjectStorePath string `yaml:"object_store_path"`
}

// Config is the top-level process configuration.
type Config struct {
	Market       string         `yaml:"market"` // "spot" or "linear_futures"
	Symbols      []SymbolConfig `yaml:"symbols"`
	RestBaseURLs []string       `yaml:"rest_base_urls"`
	Archive      ArchiveConfig  `yaml:"archive"`
	Development  bool           `yaml:"development"`
}

// RestRequestTimeout bounds every individual REST snapshot attempt.
const RestRequestTimeout = 5 * time.Second

// LoadConfig reads and validates configuration from path.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config file path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete enough to run.
func (c *Config) Validate() error {
	if c.Market != "spot" && c.Market != "linear_futures" {
		return fmt.Errorf("market must be 'spot' or 'linear_futures', got %q", c.Market)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol must be configured")
	}
	for i, s := range c.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("symbols[%d].symbol cannot be empty", i)
		}
		if s.DepthMs <= 0 {
			return fmt.Errorf("symbols[%d].depth_ms must be positive", i)
		}
	}
	if len(c.RestBaseURLs) == 0 {
		return fmt.Errorf("at least one rest_base_urls entry is required")
	}
	if c.Archive.Directory == "" {
		return fmt.Errorf("archive.directory cannot be empty")
	}
	return nil
}
