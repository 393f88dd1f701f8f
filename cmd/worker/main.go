package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Background worker that re-checks monitored endpoints",
	Long: "worker periodically executes every stored check, records the outcome, " +
		"alerts owners on up/down transitions and rotates the outcome logs.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}
