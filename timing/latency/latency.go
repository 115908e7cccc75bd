// Package latency provides the cycle-cost model of cache accesses.
//
// An access costs nothing extra when it hits, the miss penalty when it
// misses, and additionally the dirty writeback penalty when the replaced
// line was dirty. The values are configured via TimingConfig.
package latency

// Table computes per-access cycle costs.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with the default penalties.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom penalties.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// ExtraCycles returns the overhead of one access on top of its base cost.
func (t *Table) ExtraCycles(hit, dirtyWriteback bool) uint32 {
	var cycles uint32

	if !hit {
		cycles += t.config.MissPenalty
	}
	if dirtyWriteback {
		cycles += t.config.DirtyWritebackPenalty
	}

	return cycles
}

// AccessCycles returns the base cost of one access.
func (t *Table) AccessCycles() uint32 {
	return t.config.AccessCycles
}

// WorstCase returns the largest overhead a single access can incur.
func (t *Table) WorstCase() uint32 {
	return t.ExtraCycles(false, true)
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
