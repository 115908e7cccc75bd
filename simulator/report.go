package simulator

import (
	"github.com/sarchlab/cachesim/timing/cache"
)

// Report is the outcome of one simulation.
type Report struct {
	RunID       string           `json:"run_id"`
	TracePath   string           `json:"trace_path,omitempty"`
	TraceDigest uint64           `json:"trace_digest,omitempty"`
	Config      Config           `json:"config"`
	Stats       cache.Statistics `json:"stats"`
	Metrics     cache.Metrics    `json:"metrics"`
}
