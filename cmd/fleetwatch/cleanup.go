package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/source"
)

var (
	cleanupOlderThan time.Duration
	cleanupDryRun    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old sessions from the database",
	Long: `Delete sessions inactive longer than --older-than, along with
their recorded tool calls and ingest offsets.

Examples:
  fleetwatch cleanup                   # Purge sessions inactive for 30 days
  fleetwatch cleanup --older-than 72h  # Purge sessions inactive for 3 days
  fleetwatch cleanup --dry-run         # Show what would be purged`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 30*24*time.Hour, "Purge sessions inactive longer than this")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be purged without purging")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.Source.DBPath); os.IsNotExist(err) {
		fmt.Println("No database found, nothing to clean up.")
		return nil
	}

	db, err := source.Open(cfg.Source.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if cleanupDryRun {
		sessions, err := db.ListSessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		cutoff := time.Now().Add(-cleanupOlderThan)
		var stale int
		for _, s := range sessions {
			if s.LastActivity.Before(cutoff) {
				stale++
				fmt.Printf("  - %s (%s, last active %s)\n",
					s.Name, s.Status, formatAgo(time.Since(s.LastActivity)))
			}
		}
		if stale == 0 {
			fmt.Printf("No sessions inactive longer than %s.\n", cleanupOlderThan)
			return nil
		}
		fmt.Printf("Dry run mode - %d session(s) would be purged.\n", stale)
		return nil
	}

	count, err := db.PurgeOldSessions(cleanupOlderThan)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	if count == 0 {
		fmt.Printf("No sessions inactive longer than %s.\n", cleanupOlderThan)
		return nil
	}
	fmt.Printf("Purged %d session(s) inactive longer than %s.\n", count, cleanupOlderThan)
	return nil
}
