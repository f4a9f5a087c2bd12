// =============================================================================
// Retail Star Schema Pipeline - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every pipeline
// command is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (retail)
//   ├── clean-inventory
//   ├── clean-sales
//   ├── clean-all
//   ├── build-model
//   ├── run
//   ├── schedule
//   └── version
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose,
//   --log-format). Each command loads the configuration and builds the run
//   logger through loadRuntime, then hands both to the pipeline.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/logging"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

// cfgFile holds the path to the pipeline configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// logFormat overrides logging.format from the configuration.
var logFormat string

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "retail",
	Short: "Retail Star Schema Pipeline - clean inventory and sales extracts into a star schema",
	Long: `Retail Star Schema Pipeline cleans raw inventory and sales extracts and
builds a star schema (DimProduct, FactSales) from them.

Stages run in a fixed order, each reading the previous stage's output:
  clean-inventory   data/raw/Inventory_raw.csv  -> data/clean/Inventory_clean.csv
  clean-sales       data/raw/Sales_raw.csv      -> data/clean/Sales_clean.csv
  build-model       data/clean/*                -> data/model/DimProduct.csv, FactSales.csv

Example Usage:
  retail clean-all                     # Clean inventory, then sales
  retail run --config ./retail.yaml    # All stages with a custom configuration
  retail schedule --cron "0 2 * * *"   # Rebuild every night at 02:00`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the running command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the pipeline configuration file; defaults apply when it does not exist",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		`Log format, "text" or "json" (overrides logging.format)`,
	)
}

// loadRuntime loads the configuration and builds the logger for a command.
// Logs go to stderr so stdout carries only the command's report.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("configuration loaded", "config", cfgFile)
	return cfg, logger, nil
}
