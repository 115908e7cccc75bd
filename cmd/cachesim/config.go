package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create and inspect configuration files.",
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write a configuration file, JSON or YAML by extension.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("file %s already exists, use --force to overwrite", path)
		}

		config, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		if err := config.SaveConfig(path); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Configuration written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration the flags resolve to.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		g, err := config.Cache.Geometry()
		if err != nil {
			return err
		}

		encoder := yaml.NewEncoder(os.Stdout)
		if err := encoder.Encode(config); err != nil {
			return err
		}
		if err := encoder.Close(); err != nil {
			return err
		}

		fmt.Printf("# %d sets, %d offset bits, %d set bits, tag from bit %d\n",
			g.NumSets(), g.OffsetBits(), g.SetBits(), g.TagShift())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	addConfigFlags(configInitCmd)
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	addConfigFlags(configShowCmd)
}
