package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/recording"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/timing/cache/reference"
	"github.com/sarchlab/cachesim/trace"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <trace>",
	Short: "Simulate one trace and print the cache statistics.",
	Long: "`run <trace>` replays a trace file through the configured cache. " +
		"Files ending in .gz, .zst or .lz4 are decompressed on the fly.",
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(runCmd)

	addConfigFlags(runCmd)
	runCmd.Flags().String("format", "text", "Output format: text, json or csv")
	runCmd.Flags().String("record", "",
		"Store the report in <path>.sqlite3 (env "+envRecord+")")
	runCmd.Flags().Bool("monitor", false, "Serve live statistics over HTTP")
	runCmd.Flags().Int("monitor-port", 0,
		"Port of the monitoring server, random if 0 (env "+envMonitorPort+")")
	runCmd.Flags().Bool("open-browser", false, "Open the monitoring page in a browser")
	runCmd.Flags().Bool("verify", false,
		"Cross-check every access against an independent LRU model")
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}

func runTrace(cmd *cobra.Command, args []string) error {
	tracePath := args[0]

	config, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	src, err := trace.Open(tracePath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var opts []simulator.Option

	var verifier *reference.Verifier
	if verify, _ := cmd.Flags().GetBool("verify"); verify {
		verifier, err = reference.NewVerifier(config.Cache)
		if err != nil {
			return err
		}
		opts = append(opts, simulator.WithObserver(verifier))
	}

	monitor, err := startMonitor(cmd, tracePath, &opts)
	if err != nil {
		return err
	}

	sim, err := simulator.New(config, opts...)
	if err != nil {
		return err
	}
	if monitor != nil {
		monitor.RegisterSimulator(sim)
	}

	if verbose {
		g := sim.Geometry()
		fmt.Fprintf(os.Stderr, "Trace: %s (%s)\n", tracePath, src.Compression())
		fmt.Fprintf(os.Stderr, "Cache: %s, %d sets, offset bits %d, set bits %d\n",
			config.Name(), g.NumSets(), g.OffsetBits(), g.SetBits())
		fmt.Fprintf(os.Stderr, "Run ID: %s\n", sim.RunID())
	}

	rep, err := sim.Run(src)
	if err != nil {
		return err
	}

	if err := report.Write(os.Stdout, format, rep); err != nil {
		return err
	}

	if path := stringFlagOrEnv(cmd, "record", envRecord); path != "" {
		if err := recordReports(path, tracePath, rep); err != nil {
			return err
		}
	}

	if verifier != nil {
		if err := verifier.Err(); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Verified %d accesses against the reference model\n",
				verifier.Checked())
		}
	}

	return nil
}

// startMonitor starts the monitoring server if requested and registers its
// progress observer.
func startMonitor(
	cmd *cobra.Command,
	tracePath string,
	opts *[]simulator.Option,
) (*monitoring.Monitor, error) {
	enabled, _ := cmd.Flags().GetBool("monitor")
	openBrowser, _ := cmd.Flags().GetBool("open-browser")
	if !enabled && !openBrowser {
		return nil, nil
	}

	port, err := intFlagOrEnv(cmd, "monitor-port", envMonitorPort)
	if err != nil {
		return nil, err
	}

	monitor := monitoring.NewMonitor().WithPortNumber(port)
	observer, _ := monitor.TrackProgress(tracePath, 0)
	*opts = append(*opts, simulator.WithObserver(observer))

	if _, err := monitor.StartServer(); err != nil {
		return nil, err
	}

	if openBrowser {
		if err := monitor.OpenBrowser(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %v\n", err)
		}
	}

	return monitor, nil
}

func recordReports(path, label string, reports ...simulator.Report) error {
	recorder, err := recording.New(path)
	if err != nil {
		return err
	}

	for _, r := range reports {
		if err := recorder.Record(label, r); err != nil {
			return err
		}
	}

	return recorder.Close()
}
