package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion records the build-time version for the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "quickgate",
	Short: "quickgate — a bounded quality-gate and auto-repair CLI",
	Long: `quickgate runs a front-end project's lint, typecheck, build, and
Lighthouse gates, normalizes their output into findings, and optionally
drives a bounded auto-repair loop against them.

All state is stored under <cwd>/.quick-gate/ (JSON artifacts, and an
optional sqlite history log).`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}
