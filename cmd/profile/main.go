// Package main provides a profiling wrapper for cachesim to identify
// performance bottlenecks in the cache model.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/sweep"
	"github.com/sarchlab/cachesim/trace"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON or YAML configuration file")
	workload    = flag.String("workload", "random", "Synthetic workload to replay when no trace is given")
	repeat      = flag.Int("repeat", 100, "Times to replay a synthetic workload")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxAccesses = flag.Uint64("max-accesses", 0, "max accesses to simulate (0 = unlimited)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] [trace]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	config := simulator.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = simulator.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	src, name, err := openSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening trace: %v\n", err)
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	sim, err := simulator.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Trace: %s\n", name)
	fmt.Printf("Cache: %s\n", config.Name())

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	start := time.Now()
	rep, err := sim.Run(&limitedSource{src: src, remaining: *maxAccesses})
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	accesses := rep.Stats.Accesses
	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Accesses simulated: %d\n", accesses)
	fmt.Printf("Miss rate: %s\n", rep.Metrics.MissRate)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if accesses > 0 {
		fmt.Printf("Accesses/second: %.0f\n", float64(accesses)/elapsed.Seconds())
	}
}

// openSource opens the trace named on the command line, or repeats the
// synthetic workload.
func openSource() (trace.Source, string, error) {
	if flag.NArg() > 0 {
		src, err := trace.Open(flag.Arg(0))
		return src, flag.Arg(0), err
	}

	w, err := sweep.LookupWorkload(*workload)
	if err != nil {
		return nil, "", err
	}

	src, err := w.Open()
	if err != nil {
		return nil, "", err
	}

	records, err := trace.Collect(src)
	if err != nil {
		return nil, "", err
	}

	repeated := make([]trace.Record, 0, len(records)*max(*repeat, 1))
	for i := 0; i < max(*repeat, 1); i++ {
		repeated = append(repeated, records...)
	}

	return trace.NewSliceSource(repeated), fmt.Sprintf("%s x%d", w.Name, max(*repeat, 1)), nil
}

// limitedSource stops after a fixed number of records. Zero means no limit.
type limitedSource struct {
	src       trace.Source
	remaining uint64
	limited   bool
}

func (s *limitedSource) Next() (trace.Record, error) {
	if s.remaining == 0 && s.limited {
		return trace.Record{}, io.EOF
	}

	rec, err := s.src.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return rec, err
		}
		return rec, io.EOF
	}

	if s.remaining > 0 {
		s.remaining--
		s.limited = true
	}

	return rec, nil
}
