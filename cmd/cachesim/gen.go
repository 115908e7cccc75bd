package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/sweep"
	"github.com/sarchlab/cachesim/trace"
)

var genCmd = &cobra.Command{
	Use:   "gen <workload> <out>",
	Short: "Write a synthetic workload as a trace file.",
	Long: "`gen <workload> <out>` writes the named synthetic workload. The " +
		"output is compressed if its name ends in .gz, .zst or .lz4. " +
		"Workloads: " + fmt.Sprint(sweep.WorkloadNames()),
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return generate(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(genCmd)
}

func generate(name, out string) error {
	w, err := sweep.LookupWorkload(name)
	if err != nil {
		return err
	}

	src, err := w.Open()
	if err != nil {
		return err
	}

	fw, err := trace.Create(out)
	if err != nil {
		return err
	}

	if err := fw.WriteAll(src); err != nil {
		_ = fw.Close()
		return err
	}

	if err := fw.Close(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Wrote %d accesses of %s to %s\n", fw.Count(), name, out)
	return nil
}
