package sweep

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/sarchlab/cachesim/trace"
)

// Workload is a named trace the harness can replay any number of times.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains the access pattern
	Description string

	// Open returns a fresh source positioned at the start of the trace.
	// Sources that implement io.Closer are closed by the harness.
	Open func() (trace.Source, error)
}

// FileWorkload replays a trace file.
func FileWorkload(path string) Workload {
	return Workload{
		Name:        path,
		Description: "trace file " + path,
		Open: func() (trace.Source, error) {
			return trace.Open(path)
		},
	}
}

// synthetic wraps a generator as a workload. The trace is generated once
// and shared by every run.
func synthetic(name, description string, gen func() []trace.Record) Workload {
	records := sync.OnceValue(gen)
	return Workload{
		Name:        name,
		Description: description,
		Open: func() (trace.Source, error) {
			return trace.NewSliceSource(records()), nil
		},
	}
}

// GetWorkloads returns the standard set of synthetic workloads. Each one
// stresses a different aspect of the cache.
func GetWorkloads() []Workload {
	return []Workload{
		sequentialRead(),
		stridedRead(),
		randomMixed(),
		pingPong(),
		matrixRowMajor(),
		matrixColumnMajor(),
		writeStream(),
	}
}

// GetCoreWorkloads returns a small subset for quick checks.
func GetCoreWorkloads() []Workload {
	return []Workload{
		sequentialRead(),
		pingPong(),
		matrixColumnMajor(),
	}
}

// LookupWorkload finds a synthetic workload by name.
func LookupWorkload(name string) (Workload, error) {
	for _, w := range GetWorkloads() {
		if w.Name == name {
			return w, nil
		}
	}
	return Workload{}, fmt.Errorf("unknown workload %q (known: %v)", name, WorkloadNames())
}

// WorkloadNames lists the synthetic workloads in alphabetical order.
func WorkloadNames() []string {
	var names []string
	for _, w := range GetWorkloads() {
		names = append(names, w.Name)
	}
	sort.Strings(names)
	return names
}

const (
	dataBase    = 0x10000000
	stackBase   = 0x7fff0000
	streamBytes = 64 * 1024
)

// Sequential reads over 64KB, 4 bytes at a time.
func sequentialRead() Workload {
	return synthetic("sequential", "4B loads walking 64KB twice - spatial locality",
		func() []trace.Record {
			var recs []trace.Record
			for pass := 0; pass < 2; pass++ {
				for off := uint64(0); off < streamBytes; off += 4 {
					recs = append(recs, trace.Record{Address: dataBase + off, Instructions: 2})
				}
			}
			return recs
		})
}

// Reads 4KB apart, so every access maps to the same few sets.
func stridedRead() Workload {
	return synthetic("strided", "loads 4KB apart over 256KB - set conflicts",
		func() []trace.Record {
			var recs []trace.Record
			for pass := 0; pass < 8; pass++ {
				for off := uint64(0); off < 256*1024; off += 4096 {
					recs = append(recs, trace.Record{Address: dataBase + off, Instructions: 3})
				}
			}
			return recs
		})
}

// Uniform random loads and stores over 1MB with a fixed seed.
func randomMixed() Workload {
	return synthetic("random", "uniform random 8B accesses over 1MB, 30% stores",
		func() []trace.Record {
			rng := rand.New(rand.NewSource(1))
			recs := make([]trace.Record, 0, 32768)
			for i := 0; i < 32768; i++ {
				recs = append(recs, trace.Record{
					IsWrite:      rng.Intn(10) < 3,
					Address:      dataBase + uint64(rng.Intn(1<<17))*8,
					Instructions: uint32(1 + rng.Intn(8)),
				})
			}
			return recs
		})
}

// Two blocks one 16KB apart, alternating a store to one with a load from
// the other. Thrashes a direct-mapped 16KB cache.
func pingPong() Workload {
	return synthetic("ping_pong", "store/load alternating between addresses 16KB apart",
		func() []trace.Record {
			recs := make([]trace.Record, 0, 4096)
			for i := 0; i < 2048; i++ {
				recs = append(recs,
					trace.Record{IsWrite: true, Address: dataBase, Instructions: 1},
					trace.Record{Address: dataBase + 16*1024, Instructions: 1},
				)
			}
			return recs
		})
}

const matrixDim = 128

// matrixWalk sums a matrixDim x matrixDim matrix of doubles into a stack
// slot, visiting elements in row-major or column-major order.
func matrixWalk(columnMajor bool) []trace.Record {
	recs := make([]trace.Record, 0, 2*matrixDim*matrixDim)
	for i := uint64(0); i < matrixDim; i++ {
		for j := uint64(0); j < matrixDim; j++ {
			row, col := i, j
			if columnMajor {
				row, col = j, i
			}
			recs = append(recs,
				trace.Record{Address: dataBase + (row*matrixDim+col)*8, Instructions: 3},
				trace.Record{IsWrite: true, Address: stackBase, Instructions: 1},
			)
		}
	}
	return recs
}

func matrixRowMajor() Workload {
	return synthetic("matrix_row", "128x128 double matrix sum, row-major",
		func() []trace.Record { return matrixWalk(false) })
}

func matrixColumnMajor() Workload {
	return synthetic("matrix_col", "128x128 double matrix sum, column-major - poor locality",
		func() []trace.Record { return matrixWalk(true) })
}

// Stores over 64KB, then loads over a disjoint 64KB that evict them.
func writeStream() Workload {
	return synthetic("write_stream", "8B stores over 64KB then loads over another 64KB - dirty evictions",
		func() []trace.Record {
			var recs []trace.Record
			for off := uint64(0); off < streamBytes; off += 8 {
				recs = append(recs, trace.Record{IsWrite: true, Address: dataBase + off, Instructions: 1})
			}
			for off := uint64(0); off < streamBytes; off += 8 {
				recs = append(recs, trace.Record{Address: dataBase + streamBytes + off, Instructions: 1})
			}
			return recs
		})
}
