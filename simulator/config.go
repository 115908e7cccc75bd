package simulator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/timing/latency"
)

// Config is the complete description of one simulated cache: its geometry
// and the cycle penalties charged per access.
type Config struct {
	Cache  cache.Config         `json:"cache" yaml:"cache"`
	Timing latency.TimingConfig `json:"timing" yaml:"timing"`
}

// DefaultConfig returns a direct-mapped 16KB cache with 16B lines, a miss
// penalty of 30 cycles and a dirty writeback penalty of 2 cycles.
func DefaultConfig() *Config {
	return &Config{
		Cache:  cache.DefaultConfig(),
		Timing: *latency.DefaultTimingConfig(),
	}
}

// LoadConfig reads a Config from a JSON or YAML file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes the Config to a file, as YAML if the extension asks for
// it and as indented JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks both the geometry and the penalties.
func (c *Config) Validate() error {
	if err := c.Cache.Validate(); err != nil {
		return err
	}

	return c.Timing.Validate()
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Name is a short label such as "16B-1way-16KB".
func (c *Config) Name() string {
	return fmt.Sprintf("%dB-%dway-%s",
		c.Cache.BlockSize, c.Cache.Associativity, formatBytes(c.Cache.Capacity))
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
