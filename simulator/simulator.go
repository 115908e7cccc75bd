// Package simulator drives a cache model with a memory access trace and
// accumulates its statistics.
package simulator

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/timing/latency"
	"github.com/sarchlab/cachesim/trace"
)

// DefaultProgressInterval is the number of accesses between two progress
// notifications.
const DefaultProgressInterval = 1 << 16

// Observer is notified about the progress of a simulation.
type Observer interface {
	// OnAccess is called after every access with its zero-based sequence
	// number.
	OnAccess(seq uint64, rec trace.Record, result cache.AccessResult)

	// OnProgress is called every progress interval and once more when the
	// trace ends.
	OnProgress(done uint64, stats cache.Statistics)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithObserver registers an observer. Observers are called in registration
// order on the simulating goroutine.
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observers = append(s.observers, o)
	}
}

// WithProgressInterval sets how many accesses pass between OnProgress
// notifications. Zero disables the periodic notifications.
func WithProgressInterval(n uint64) Option {
	return func(s *Simulator) {
		s.progressInterval = n
	}
}

// Simulator feeds accesses into one cache.
type Simulator struct {
	mu sync.RWMutex

	runID  string
	config *Config
	cache  *cache.Cache
	stats  cache.Statistics
	done   uint64

	observers        []Observer
	progressInterval uint64
}

// New validates the config and builds a Simulator with a cold cache.
func New(config *Config, opts ...Option) (*Simulator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config = config.Clone()
	c, err := cache.New(config.Cache, latency.NewTableWithConfig(&config.Timing))
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		runID:            xid.New().String(),
		config:           config,
		cache:            c,
		progressInterval: DefaultProgressInterval,
	}
	s.stats.AccessCycles = config.Timing.AccessCycles

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RunID returns the unique identifier of this simulation.
func (s *Simulator) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.runID
}

// Config returns a copy of the configuration.
func (s *Simulator) Config() *Config {
	return s.config.Clone()
}

// Geometry returns the address decomposition of the simulated cache.
func (s *Simulator) Geometry() cache.Geometry {
	return s.cache.Geometry()
}

// Step processes one access and updates the statistics.
func (s *Simulator) Step(rec trace.Record) cache.AccessResult {
	s.mu.Lock()
	result := s.cache.Probe(rec.IsWrite, rec.Address)
	s.stats.Record(rec.Instructions, rec.IsWrite,
		result.Hit, result.DirtyWriteback, result.ExtraCycles)
	seq := s.done
	s.done++
	done := s.done
	s.mu.Unlock()

	for _, o := range s.observers {
		o.OnAccess(seq, rec, result)
	}

	if s.progressInterval > 0 && done%s.progressInterval == 0 {
		s.notifyProgress()
	}

	return result
}

// Run consumes the source until io.EOF. On a read error the report covers
// the accesses processed so far and the error is returned alongside it.
func (s *Simulator) Run(src trace.Source) (Report, error) {
	var runErr error

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("reading trace: %w", err)
			break
		}

		s.Step(rec)
	}

	s.notifyProgress()

	report := s.Report()
	if p, ok := src.(interface{ Path() string }); ok {
		report.TracePath = p.Path()
	}
	if d, ok := src.(interface{ Digest() uint64 }); ok {
		report.TraceDigest = d.Digest()
	}

	return report, runErr
}

func (s *Simulator) notifyProgress() {
	if len(s.observers) == 0 {
		return
	}

	done, stats := s.Progress()
	for _, o := range s.observers {
		o.OnProgress(done, stats)
	}
}

// Progress returns the number of processed accesses and a snapshot of the
// statistics. It is safe to call while another goroutine runs the trace.
func (s *Simulator) Progress() (uint64, cache.Statistics) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.done, s.stats
}

// Stats returns a snapshot of the statistics.
func (s *Simulator) Stats() cache.Statistics {
	_, stats := s.Progress()
	return stats
}

// Lines returns a copy of one set's lines. It is safe to call while another
// goroutine runs the trace.
func (s *Simulator) Lines(setIndex uint64) ([]cache.Line, error) {
	if setIndex >= s.cache.Geometry().NumSets() {
		return nil, fmt.Errorf("set %d out of range [0, %d)",
			setIndex, s.cache.Geometry().NumSets())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cache.Lines(setIndex), nil
}

// Report summarizes the simulation so far.
func (s *Simulator) Report() Report {
	stats := s.Stats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Report{
		RunID:   s.runID,
		Config:  *s.config,
		Stats:   stats,
		Metrics: stats.Derive(),
	}
}

// Reset invalidates the cache and clears the statistics. The run ID is
// regenerated.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Reset()
	s.stats.Reset()
	s.done = 0
	s.runID = xid.New().String()
}
