// Package cache provides a trace-driven model of a set-associative cache with
// stack-based LRU replacement and dirty-writeback accounting.
package cache

import (
	"github.com/sarchlab/cachesim/timing/latency"
)

// Config holds the cache geometry.
type Config struct {
	// BlockSize in bytes (cache line size)
	BlockSize uint64 `json:"block_size" yaml:"block_size"`
	// Associativity (number of ways)
	Associativity uint64 `json:"associativity" yaml:"associativity"`
	// Capacity in bytes
	Capacity uint64 `json:"capacity" yaml:"capacity"`
}

// DefaultConfig returns the reference configuration: a direct-mapped 16KB
// cache with 16B lines.
func DefaultConfig() Config {
	return Config{
		BlockSize:     1 << 4,  // 16B cache line
		Associativity: 1 << 0,  // direct-mapped
		Capacity:      1 << 14, // 16KB
	}
}

// DefaultL1DConfig returns an L1 data cache modeled on the Apple M2
// performance core: 128KB, 8-way, 64B lines.
func DefaultL1DConfig() Config {
	return Config{
		BlockSize:     64,
		Associativity: 8,
		Capacity:      128 * 1024,
	}
}

// DefaultL2PerCoreConfig returns a private per-core L2: 512KB, 8-way, 128B
// lines.
func DefaultL2PerCoreConfig() Config {
	return Config{
		BlockSize:     128,
		Associativity: 8,
		Capacity:      512 * 1024,
	}
}

// Presets lists the named configurations accepted by the command line.
func Presets() map[string]Config {
	return map[string]Config{
		"reference": DefaultConfig(),
		"m2-l1d":    DefaultL1DConfig(),
		"l2-core":   DefaultL2PerCoreConfig(),
	}
}

// Validate checks that the geometry can be built.
func (c Config) Validate() error {
	_, err := c.Geometry()
	return err
}

// Geometry builds the address decomposition for this configuration.
func (c Config) Geometry() (Geometry, error) {
	return NewGeometry(c.BlockSize, c.Associativity, c.Capacity)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// DirtyWriteback is true if the access replaced a dirty line.
	DirtyWriteback bool
	// ExtraCycles is the miss and writeback overhead of this access.
	ExtraCycles uint32

	// SetIndex is the set the address maps to.
	SetIndex uint64
	// Tag is the tag of the address.
	Tag uint64
	// Way is the slot within the set that now holds the block.
	Way int

	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the block address of the replaced block (if Evicted
	// is true).
	EvictedAddr uint64
}

// Cache represents a single-level cache driven by an access trace.
type Cache struct {
	config   Config
	geometry Geometry
	state    *State
	policy   *StackLRU
	latency  *latency.Table
}

// New creates a new cache. It fails if the geometry is invalid. A nil table
// uses the default penalties.
func New(config Config, table *latency.Table) (*Cache, error) {
	geometry, err := config.Geometry()
	if err != nil {
		return nil, err
	}

	if table == nil {
		table = latency.NewTable()
	}

	return &Cache{
		config:   config,
		geometry: geometry,
		state: NewState(
			int(geometry.NumSets()),
			int(geometry.Associativity()),
		),
		policy:  NewStackLRU(),
		latency: table,
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Geometry returns the address decomposition in use.
func (c *Cache) Geometry() Geometry {
	return c.geometry
}

// Latency returns the cycle-cost model in use.
func (c *Cache) Latency() *latency.Table {
	return c.latency
}

// Lines returns a copy of the lines of one set.
func (c *Cache) Lines(setIndex uint64) []Line {
	return append([]Line(nil), c.state.Set(setIndex)...)
}

// Probe performs one access. Any address and access type is valid.
func (c *Cache) Probe(isWrite bool, addr uint64) AccessResult {
	setIndex := c.geometry.SetIndex(addr)
	tag := c.geometry.Tag(addr)
	set := c.state.Set(setIndex)

	res := c.policy.Resolve(set, tag, isWrite)

	result := AccessResult{
		Hit:            res.Hit,
		DirtyWriteback: res.DirtyWriteback,
		ExtraCycles:    c.latency.ExtraCycles(res.Hit, res.DirtyWriteback),
		SetIndex:       setIndex,
		Tag:            tag,
		Way:            res.Way,
	}

	if res.Evicted {
		result.Evicted = true
		result.EvictedAddr = c.geometry.Compose(res.EvictedTag, setIndex, 0)
	}

	return result
}

// Reset invalidates all cache lines.
func (c *Cache) Reset() {
	c.state.Reset()
}
