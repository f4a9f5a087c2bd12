// =============================================================================
// Retail Star Schema Pipeline - Schedule Command
// =============================================================================
//
// This file defines the 'schedule' command, which keeps the process running
// and rebuilds the whole star schema on a cron schedule.
//
// COMMAND USAGE:
//   retail schedule [flags]
//
// FLAGS:
//   --cron     : Cron expression, overrides schedule.cron (default "@daily")
//   --run-now  : Run once immediately before waiting for the first trigger
//
// A failed run is logged and the scheduler keeps going. Runs never overlap.
// Press Ctrl+C to stop; a run in progress is allowed to finish.
//
// =============================================================================

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/retail-star-schema/internal/metrics"
	"github.com/ginjaninja78/retail-star-schema/internal/pipeline"
	"github.com/ginjaninja78/retail-star-schema/internal/scheduler"
)

var (
	cronSpec string
	runNow   bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the full pipeline on a cron schedule",
	Long: `Runs clean-inventory, clean-sales and build-model every time the cron
expression fires, until interrupted. Each run gets its own run ID and reports.
Metrics accumulate across runs when metrics.textfile is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		if cronSpec != "" {
			cfg.Schedule.Cron = cronSpec
		}

		p := pipeline.New(cfg, logger, pipeline.WithMetrics(metrics.New()))
		all := []pipeline.Stage{pipeline.StageInventory, pipeline.StageSales, pipeline.StageModel}

		job := func(ctx context.Context) error {
			res, err := p.Execute(ctx, "schedule", all...)
			printResult(cmd.OutOrStdout(), "schedule", res, verbose)
			return err
		}

		s, err := scheduler.New(cfg.Schedule.Cron, job, runNow, logger)
		if err != nil {
			return err
		}
		return s.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(
		&cronSpec,
		"cron",
		"",
		`Cron expression or descriptor such as "@hourly" (overrides schedule.cron)`,
	)

	scheduleCmd.Flags().BoolVar(
		&runNow,
		"run-now",
		false,
		"Run the pipeline once immediately before waiting for the first trigger",
	)
}
