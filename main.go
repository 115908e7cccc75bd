// Package main provides the entry point for cachesim.
// cachesim is a trace-driven set-associative cache simulator.
//
// For the full CLI, use: go run ./cmd/cachesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("cachesim - Trace-Driven Cache Simulator")
	fmt.Println("")
	fmt.Println("Usage: cachesim <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run <trace>     Simulate one trace and print the report")
	fmt.Println("  sweep [traces]  Run workloads across a grid of cache configurations")
	fmt.Println("  gen <name> <f>  Write a synthetic workload as a trace file")
	fmt.Println("  config          Create or show a configuration file")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/cachesim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/cachesim' instead.")
	}
}
