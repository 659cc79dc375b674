package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetwatch/fleetwatch/internal/config"
	"github.com/fleetwatch/fleetwatch/internal/dashboard"
	"github.com/fleetwatch/fleetwatch/internal/roster"
	"github.com/fleetwatch/fleetwatch/internal/source"
	"github.com/fleetwatch/fleetwatch/internal/trace"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Launch the live dashboard",
	Long: `Launch the live dashboard over the configured projects directory.

The dashboard ingests session logs as they change, shows every agent's
status and running tool call, and offers timeline and stats views.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch()
	},
}

func runWatch() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := source.Open(cfg.Source.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	reg := roster.New()
	emitter := roster.NewEventEmitter(256)
	defer emitter.Close()

	ingester := source.NewIngester(db, reg, emitter, cfg.Source.IdleAfter)
	watcher, err := source.NewWatcher(cfg.Source.ProjectsDir, ingester)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	client := trace.NewClient(cfg.Retro.ServerURL, cfg.Retro.Timeout)
	app := dashboard.NewApp(cfg, reg, client)
	program := dashboard.NewProgram(app)

	app.SetFocusAgentHandler(func(agentID string) {
		log.Printf("[watch] focus agent %s", agentID)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		program.Quit()
	}()

	// Suppress log output while TUI is active
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	// Forward source events into the TUI event loop.
	go func() {
		for ev := range emitter.Events() {
			program.Send(dashboard.EventMsg{Event: ev})
		}
	}()

	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[watch] watcher stopped: %v", err)
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}
