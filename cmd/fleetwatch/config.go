package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fleetwatch/fleetwatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: `Display the effective fleetwatch configuration after merging
defaults, the user config, any project override, and environment
variables.

Configuration is stored at ~/.config/fleetwatch/config.yaml
Project-specific overrides can be placed in .fleetwatch.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

func displayConfig(cfg *config.Config) {
	key := color.New(color.Faint).SprintFunc()

	fmt.Printf("%s %s\n", key("source.projects_dir:"), cfg.Source.ProjectsDir)
	fmt.Printf("%s %s\n", key("source.db_path:"), cfg.Source.DBPath)
	fmt.Printf("%s %s\n", key("source.idle_after:"), cfg.Source.IdleAfter)
	fmt.Printf("%s %s\n", key("retro.server_url:"), cfg.Retro.ServerURL)
	fmt.Printf("%s %s\n", key("retro.timeout:"), cfg.Retro.Timeout)
	fmt.Printf("%s %s\n", key("timeline.horizon:"), cfg.Timeline.Horizon)
	fmt.Printf("%s %s\n", key("refresh.tick:"), cfg.Refresh.Tick)
	fmt.Printf("%s %s\n", key("refresh.resync:"), cfg.Refresh.Resync)
}
