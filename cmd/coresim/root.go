package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coresim",
	Short: "coresim runs digital circuits on the event-driven simulation kernel.",
	Long: `coresim runs digital circuits on the event-driven simulation kernel. ` +
		`It currently ships a demo counter circuit (run) that exercises clock ` +
		`processes, clocked registers, combinational logic, and waveform tracing.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
