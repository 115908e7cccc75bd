package latency

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// TimingConfig holds the cycle penalties charged per access.
type TimingConfig struct {
	// MissPenalty is the number of cycles added when an access misses.
	// Default: 30 cycles.
	MissPenalty uint32 `json:"miss_penalty" yaml:"miss_penalty"`

	// DirtyWritebackPenalty is the number of cycles added when a miss
	// replaces a dirty line. Default: 2 cycles.
	DirtyWritebackPenalty uint32 `json:"dirty_wb_penalty" yaml:"dirty_wb_penalty"`

	// AccessCycles is the base cost of every access, hit or miss. It is not
	// part of the per-access penalty; the statistics layer adds it.
	// Default: 0 cycles.
	AccessCycles uint32 `json:"access_cycles" yaml:"access_cycles"`
}

// DefaultTimingConfig returns the penalties of the reference configuration.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		MissPenalty:           30,
		DirtyWritebackPenalty: 2,
		AccessCycles:          0,
	}
}

// LoadConfig loads a TimingConfig from a JSON file.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that the worst-case per-access penalty fits in 32 bits.
func (c *TimingConfig) Validate() error {
	if uint64(c.MissPenalty)+uint64(c.DirtyWritebackPenalty) > math.MaxUint32 {
		return fmt.Errorf("miss_penalty + dirty_wb_penalty must fit in 32 bits")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
