package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wattson",
	Short: "Utility bill analysis pipeline",
	Long: `Wattson runs utility bills through a four-stage analysis pipeline:
extraction, usage pattern analysis, anomaly detection, and personalized
savings recommendations.

The pipeline is dependency-aware: the two analysis stages fan out from the
extraction result and their findings are merged into the recommendation
input. Stages retry transient failures with exponential backoff, and a
low-confidence answer earns one hinted re-attempt.

Results accumulate per session, so several bills analyzed in one invocation
share context in the output.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
