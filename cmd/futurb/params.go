package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"futurb/internal/sims/isobenefit"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the resolved simulation parameters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sim, _, err := simulationConfig(cmd, cfg)
		if err != nil {
			return err
		}
		_, err = sim.Parameters().WriteTo(os.Stdout)
		return err
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the registered growth presets",
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range isobenefit.PresetNames() {
			sim := isobenefit.DefaultConfig()
			_ = isobenefit.ApplyPreset(&sim, name)
			fmt.Printf("%-12s rules=%v policy=%s\n", name, sim.Rules, sim.Policy)
		}
	},
}

func init() {
	addSimulationFlags(paramsCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(presetsCmd)
}
