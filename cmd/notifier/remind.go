package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-community-notifier/internal/config"
	"github.com/spf13/cobra"
)

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one event reminder cycle and exit",
		Long: `remind scans events starting within REMINDER_WINDOW and reminds confirmed
attendees once. Intended for cron; set REDIS_URL so runs share the dedup cache.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(parentOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, config.Load(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.scheduler.RunCycle(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Error != "" {
				return fmt.Errorf("reminder cycle: %s", report.Error)
			}
			return nil
		},
	}
}

