package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anstrom/rtspscout/internal/api"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics"
	"github.com/anstrom/rtspscout/internal/scheduler"
)

var watchSchedule string

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run discovery periodically and serve the results over HTTP",
	Long: `Run discovery on a cron schedule. The latest report, a trigger for
immediate runs, websocket notifications and Prometheus metrics are served
by the HTTP API unless it is disabled in the configuration.`,
	Example: `  rtspscout watch
  rtspscout watch --schedule "@every 5m"
  rtspscout watch --schedule "0 * * * *" --interface eth0`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (default from config, @every 15m)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchSchedule != "" {
		cfg.Watch.Schedule = watchSchedule
	}

	logger := logging.Default()
	sched, err := scheduler.NewScheduler(newEngine(cfg), cfg.Watch,
		scheduler.WithLogger(logger.WithComponent("scheduler")))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := sched.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer stopCancel()
		if err := sched.Stop(stopCtx); err != nil {
			logger.Error("Scheduler did not stop cleanly", "error", err)
		}
	}()

	if !cfg.API.Enabled {
		logger.Info("Watching without API", "schedule", cfg.Watch.Schedule)
		<-ctx.Done()
		return nil
	}

	pm := metrics.GetGlobalMetrics()
	server := api.New(cfg.API, sched,
		api.WithLogger(logger.WithComponent("api")),
		api.WithMetrics(pm, pm.Handler()),
		api.WithVersion(version))

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}
