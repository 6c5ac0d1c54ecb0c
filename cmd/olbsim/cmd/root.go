// Package cmd provides the command-line interface of olbsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "olbsim",
	Short: "olbsim simulates BGAS nodes that share memory through OLBs.",
	Long: `olbsim builds a system of nodes, each with a CPU agent, an Object ` +
		`Lookaside Buffer and a memory, runs random local and remote ` +
		`accesses, and reports the OLB statistics.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
