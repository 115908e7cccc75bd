package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/simulator"
	"github.com/sarchlab/cachesim/sweep"
	"github.com/sarchlab/cachesim/timing/cache"
)

// Environment variables that supply flag defaults. They may also be set in a
// .env file in the working directory.
const (
	envConfig      = "CACHESIM_CONFIG"
	envMonitorPort = "CACHESIM_MONITOR_PORT"
	envRecord      = "CACHESIM_RECORD"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "cachesim is a trace-driven set-associative cache simulator.",
	Long: `cachesim replays memory access traces through a write-back, ` +
		`write-allocate cache with LRU replacement and reports accesses, ` +
		`misses, dirty writebacks, cycles and IPC.`,
	Version:       simulator.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// addConfigFlags registers the flags that describe one cache.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "",
		"Path to a JSON or YAML configuration file (env "+envConfig+")")
	cmd.Flags().String("preset", "",
		"Start from a named configuration: reference, m2-l1d or l2-core")
	cmd.Flags().String("block-size", "", "Block size in bytes, e.g. 16 or 64")
	cmd.Flags().String("associativity", "", "Number of ways")
	cmd.Flags().String("capacity", "", "Capacity in bytes, e.g. 16384 or 16K")
	cmd.Flags().Uint32("miss-penalty", 0, "Cycles added on a miss")
	cmd.Flags().Uint32("dirty-wb-penalty", 0, "Cycles added when a dirty line is replaced")
	cmd.Flags().Uint32("access-cycles", 0, "Base cycles charged for every access")
}

// resolveConfig builds the configuration from, in increasing priority, the
// defaults, a configuration file, a preset geometry and individual flags.
func resolveConfig(cmd *cobra.Command) (*simulator.Config, error) {
	config := simulator.DefaultConfig()

	if path := stringFlagOrEnv(cmd, "config", envConfig); path != "" {
		loaded, err := simulator.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		preset, ok := cache.Presets()[name]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", name)
		}
		config.Cache = preset
	}

	sizes := []struct {
		flag string
		dst  *uint64
	}{
		{"block-size", &config.Cache.BlockSize},
		{"associativity", &config.Cache.Associativity},
		{"capacity", &config.Cache.Capacity},
	}
	for _, s := range sizes {
		if !cmd.Flags().Changed(s.flag) {
			continue
		}
		text, _ := cmd.Flags().GetString(s.flag)
		v, err := sweep.ParseSize(text)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", s.flag, err)
		}
		*s.dst = v
	}

	penalties := []struct {
		flag string
		dst  *uint32
	}{
		{"miss-penalty", &config.Timing.MissPenalty},
		{"dirty-wb-penalty", &config.Timing.DirtyWritebackPenalty},
		{"access-cycles", &config.Timing.AccessCycles},
	}
	for _, p := range penalties {
		if cmd.Flags().Changed(p.flag) {
			*p.dst, _ = cmd.Flags().GetUint32(p.flag)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// stringFlagOrEnv returns the flag value if it was set, and the environment
// variable otherwise.
func stringFlagOrEnv(cmd *cobra.Command, name, env string) string {
	v, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) || env == "" {
		return v
	}
	if e, ok := os.LookupEnv(env); ok {
		return e
	}
	return v
}

// intFlagOrEnv is stringFlagOrEnv for integer flags.
func intFlagOrEnv(cmd *cobra.Command, name, env string) (int, error) {
	v, _ := cmd.Flags().GetInt(name)
	if cmd.Flags().Changed(name) {
		return v, nil
	}
	if e, ok := os.LookupEnv(env); ok {
		n, err := strconv.Atoi(e)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", env, err)
		}
		return n, nil
	}
	return v, nil
}
