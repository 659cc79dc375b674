package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fleetwatch",
	Short: "Live dashboard for a fleet of agent sessions",
	Long: `Fleetwatch watches a directory of agent session logs and renders a
live terminal dashboard over them.

With no arguments, launches the dashboard.

Core capabilities:
- Tracks every session as it appears, works, and finishes
- Shows running tool calls with stall highlighting
- Renders a zoomable timeline of sub-agent and tool activity
- Pulls post-hoc retro analyses from the retro service when available`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
