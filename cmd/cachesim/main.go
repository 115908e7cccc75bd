// Command cachesim replays memory access traces through a set-associative
// cache model and reports hit, miss and timing statistics.
//
// Usage:
//
//	cachesim run [flags] <trace>
//	cachesim sweep [flags] [trace|workload...]
//	cachesim gen <workload> <out>
//	cachesim config init <path>
//
// Example:
//
//	# Simulate the reference 16KB direct-mapped cache
//	cachesim run gcc.trace
//
//	# A 64KB 4-way cache with 64B lines, reported as JSON
//	cachesim run --capacity 64K --associativity 4 --block-size 64 --format json gcc.trace.gz
//
//	# Compare geometries on the synthetic workloads
//	cachesim sweep --associativities 1,2,4,8 --capacities 4K,16K,64K
package main

func main() {
	Execute()
}
