package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/source"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked sessions without launching the dashboard",
	Long: `Display every session fleetwatch has ingested.

Shows each session's status, turn count, accumulated cost, tool error
count, and time since last activity.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.Source.DBPath); os.IsNotExist(err) {
		fmt.Println("No sessions ingested yet. Run 'fleetwatch watch' to start.")
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

	sessions, err := db.ListSessions()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions ingested yet. Run 'fleetwatch watch' to start.")
		return nil
	}

	fmt.Printf("%-28s %-9s %6s %9s %5s %s\n", "SESSION", "STATUS", "TURNS", "COST", "ERRS", "LAST ACTIVITY")
	now := time.Now()
	for _, s := range sessions {
		fmt.Printf("%-28s %-9s %6d %9s %5d %s\n",
			truncate(s.Name, 28),
			statusColored(s.Status),
			s.TurnCount,
			fmt.Sprintf("$%.2f", s.CostUSD),
			s.ErrorCount,
			formatAgo(now.Sub(s.LastActivity)))
	}
	return nil
}

func statusColored(status string) string {
	switch status {
	case "active":
		return color.GreenString("%-9s", status)
	case "waiting":
		return color.YellowString("%-9s", status)
	case "done":
		return color.CyanString("%-9s", status)
	default:
		return fmt.Sprintf("%-9s", status)
	}
}

func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
