package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/recording"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep [flags] [trace|workload...]",
	Short: "Compare many cache geometries on traces or synthetic workloads.",
	Long: "`sweep` runs the cross product of the given block sizes, " +
		"associativities and capacities on every trace file or synthetic " +
		"workload named on the command line, or on all synthetic workloads " +
		"if none is named. Synthetic workloads: " +
		fmt.Sprint(sweep.WorkloadNames()),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	addConfigFlags(sweepCmd)
	sweepCmd.Flags().String("block-sizes", "", "Comma-separated block sizes, e.g. 16,32,64")
	sweepCmd.Flags().String("associativities", "", "Comma-separated associativities, e.g. 1,2,4")
	sweepCmd.Flags().String("capacities", "", "Comma-separated capacities, e.g. 4K,16K,64K")
	sweepCmd.Flags().Int("parallel", runtime.GOMAXPROCS(0), "Number of concurrent simulations")
	sweepCmd.Flags().String("format", "text", "Output format: text, json or csv")
	sweepCmd.Flags().String("record", "",
		"Store every report in <path>.sqlite3 (env "+envRecord+")")
	sweepCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	var lists [3][]uint64
	for i, name := range []string{"block-sizes", "associativities", "capacities"} {
		text, _ := cmd.Flags().GetString(name)
		lists[i], err = sweep.ParseSizes(text)
		if err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}

	configs := sweep.Grid(lists[0], lists[1], lists[2], base)
	if len(configs) == 0 {
		return fmt.Errorf("no valid cache configuration in the sweep")
	}

	workloads, err := sweepWorkloads(args)
	if err != nil {
		return err
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	harnessConfig := sweep.DefaultConfig()
	harnessConfig.Configs = configs
	harnessConfig.Parallelism, _ = cmd.Flags().GetInt("parallel")
	harnessConfig.Verbose, _ = cmd.Flags().GetBool("verbose")

	harness := sweep.NewHarness(harnessConfig)
	harness.AddWorkloads(workloads)

	if harnessConfig.Verbose {
		fmt.Fprintf(os.Stderr, "Sweeping %d configurations over %d workloads\n",
			len(configs), len(workloads))
	}

	results := harness.RunAll()

	switch format {
	case report.FormatJSON:
		err = harness.PrintJSON(results)
	case report.FormatCSV:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}
	if err != nil {
		return err
	}

	if path := stringFlagOrEnv(cmd, "record", envRecord); path != "" {
		if err := recordResults(path, results); err != nil {
			return err
		}
	}

	summary := sweep.Summarize(results)
	if summary.FailedRuns > 0 {
		return fmt.Errorf("%d of %d runs failed", summary.FailedRuns, summary.TotalRuns)
	}

	return nil
}

// sweepWorkloads resolves each argument as a trace file if it exists, and
// as a synthetic workload name otherwise.
func sweepWorkloads(args []string) ([]sweep.Workload, error) {
	if len(args) == 0 {
		return sweep.GetWorkloads(), nil
	}

	var workloads []sweep.Workload
	for _, arg := range args {
		if _, err := os.Stat(arg); err == nil {
			workloads = append(workloads, sweep.FileWorkload(arg))
			continue
		}

		w, err := sweep.LookupWorkload(arg)
		if err != nil {
			return nil, err
		}
		workloads = append(workloads, w)
	}

	return workloads, nil
}

func recordResults(path string, results []sweep.Result) error {
	recorder, err := recording.New(path)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if err := recorder.Record(r.Workload, r.Report); err != nil {
			return err
		}
	}

	return recorder.Close()
}
