// Command swandns-client runs the Dynamic Client (C8): it resolves local
// interface addresses and publishes them via the RPC Upsert call, either
// once or on a cron-like schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"swandns/internal/config"
	"swandns/internal/dynclient"
	"swandns/internal/telemetry"
)

func main() {
	var configPath, schedule string

	cmd := &cobra.Command{
		Use:   "swandns-client",
		Short: "Publish local interface addresses via the dynamic-record RPC surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, schedule)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to client config file")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron-like spec; absent, runs one iteration and exits")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, schedule string) error {
	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := telemetry.Named(logger, "dynclient")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := dynclient.New(cfg, log)

	if schedule == "" {
		failed := client.RunOnce(ctx)
		if len(failed) > 0 {
			log.Warnw("iteration completed with failures", "failed", failed)
			return fmt.Errorf("swandns-client: %d record(s) failed to publish", len(failed))
		}
		return nil
	}

	sched, err := dynclient.NewScheduler(client, schedule, log)
	if err != nil {
		return err
	}
	sched.Run(ctx)
	return nil
}
