// Package sweep runs many cache configurations against many workloads and
// compares the results.
package sweep

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/timing/cache"
)

// Result holds the outcome of one configuration on one workload.
type Result struct {
	// Workload names the replayed trace
	Workload string `json:"workload"`

	// Report is the simulation report; partial if Err is set
	Report simulator.Report `json:"report"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`

	// Err is set if the trace could not be opened or read to the end
	Err error `json:"-"`
}

// HarnessConfig configures the sweep harness.
type HarnessConfig struct {
	// Configs are the cache configurations to evaluate
	Configs []*simulator.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Parallelism bounds the number of concurrent simulations
	// (default: GOMAXPROCS)
	Parallelism int

	// Verbose prints a line per finished run
	Verbose bool

	// Log is where verbose progress goes (default: os.Stderr)
	Log io.Writer
}

// DefaultConfig returns a harness configuration evaluating the reference
// cache only.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Configs:     []*simulator.Config{simulator.DefaultConfig()},
		Output:      os.Stdout,
		Parallelism: runtime.GOMAXPROCS(0),
		Verbose:     false,
		Log:         os.Stderr,
	}
}

// Harness evaluates every configuration against every workload.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new sweep harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Log == nil {
		config.Log = os.Stderr
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.GOMAXPROCS(0)
	}
	return &Harness{
		config:    config,
		workloads: []Workload{},
	}
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// RunAll executes every (workload, config) pair and returns the results
// ordered by workload, then by config. A failing run does not stop the
// others.
func (h *Harness) RunAll() []Result {
	results := make([]Result, len(h.workloads)*len(h.config.Configs))

	var g errgroup.Group
	g.SetLimit(h.config.Parallelism)

	for wi, w := range h.workloads {
		for ci, config := range h.config.Configs {
			idx := wi*len(h.config.Configs) + ci
			g.Go(func() error {
				results[idx] = h.runOne(w, config)
				return nil
			})
		}
	}
	_ = g.Wait()

	if h.config.Verbose {
		for _, r := range results {
			h.printProgress(r)
		}
	}

	return results
}

func (h *Harness) runOne(w Workload, config *simulator.Config) Result {
	result := Result{Workload: w.Name}
	result.Report.Config = *config

	sim, err := simulator.New(config)
	if err != nil {
		result.Err = err
		return result
	}

	src, err := w.Open()
	if err != nil {
		result.Err = fmt.Errorf("opening workload %s: %w", w.Name, err)
		return result
	}
	if closer, ok := src.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	start := time.Now()
	result.Report, result.Err = sim.Run(src)
	result.WallTime = time.Since(start)

	return result
}

func (h *Harness) printProgress(r Result) {
	if r.Err != nil {
		_, _ = fmt.Fprintf(h.config.Log, "[FAIL] %s on %s: %v\n",
			r.Report.Config.Name(), r.Workload, r.Err)
		return
	}
	_, _ = fmt.Fprintf(h.config.Log, "[done] %s on %s in %v\n",
		r.Report.Config.Name(), r.Workload, r.WallTime)
}

// PrintResults outputs results in a human-readable table.
func (h *Harness) PrintResults(results []Result) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== Cache Sweep Results ===")
	_, _ = fmt.Fprintln(out, "")

	workload := ""
	for _, r := range results {
		if r.Workload != workload {
			if workload != "" {
				_, _ = fmt.Fprintln(out, "")
			}
			workload = r.Workload
			_, _ = fmt.Fprintf(out, "Workload: %s\n", workload)
			_, _ = fmt.Fprintf(out, "  %-22s %10s %10s %10s %12s %10s\n",
				"config", "accesses", "miss-rate", "dirty-wb", "cycles", "ipc")
		}

		if r.Err != nil {
			_, _ = fmt.Fprintf(out, "  %-22s error: %v\n", r.Report.Config.Name(), r.Err)
			continue
		}

		s := r.Report.Stats
		m := r.Report.Metrics
		_, _ = fmt.Fprintf(out, "  %-22s %10d %10s %10d %12d %10s\n",
			r.Report.Config.Name(),
			s.Accesses,
			shortRatio(m.MissRate),
			s.DirtyWritebacks,
			s.Cycles,
			shortRatio(m.IPC),
		)
	}
	_, _ = fmt.Fprintln(out, "")
}

func shortRatio(r cache.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", r.Value)
}

// PrintCSV outputs results in CSV format, one row per run.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output, "workload,"+report.CSVHeader+",error")

	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = fmt.Sprintf("%q", r.Err.Error())
		}
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%s\n",
			r.Workload, report.CSVRow(r.Report), errText)
	}
}

// SweepReport is the complete JSON output of a sweep.
type SweepReport struct {
	Metadata ReportMetadata `json:"metadata"`
	Results  []ResultJSON   `json:"results"`
	Summary  ReportSummary  `json:"summary"`
}

// ReportMetadata contains information about the sweep.
type ReportMetadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Configs   int    `json:"configs"`
}

// ReportSummary contains aggregate statistics across all runs.
type ReportSummary struct {
	TotalRuns     int           `json:"total_runs"`
	FailedRuns    int           `json:"failed_runs"`
	TotalAccesses uint64        `json:"total_accesses"`
	TotalWallTime time.Duration `json:"total_wall_time_ns"`

	// Best maps each workload to the config with the lowest miss rate.
	Best map[string]string `json:"best_config"`
}

// ResultJSON is a Result with its error flattened to text.
type ResultJSON struct {
	Result
	Error string `json:"error,omitempty"`
}

// Summarize computes aggregate statistics.
func Summarize(results []Result) ReportSummary {
	summary := ReportSummary{
		TotalRuns: len(results),
		Best:      map[string]string{},
	}

	best := map[string]float64{}
	for _, r := range results {
		summary.TotalWallTime += r.WallTime
		if r.Err != nil {
			summary.FailedRuns++
			continue
		}

		summary.TotalAccesses += r.Report.Stats.Accesses

		mr := r.Report.Metrics.MissRate
		if !mr.Defined {
			continue
		}
		if cur, ok := best[r.Workload]; !ok || mr.Value < cur {
			best[r.Workload] = mr.Value
			summary.Best[r.Workload] = r.Report.Config.Name()
		}
	}

	return summary
}

// PrintJSON outputs results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []Result) error {
	out := SweepReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   simulator.Version,
			Configs:   len(h.config.Configs),
		},
		Results: make([]ResultJSON, 0, len(results)),
		Summary: Summarize(results),
	}
	for _, r := range results {
		jr := ResultJSON{Result: r}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		out.Results = append(out.Results, jr)
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
