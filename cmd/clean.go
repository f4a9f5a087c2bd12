// =============================================================================
// Retail Star Schema Pipeline - Stage Commands
// =============================================================================
//
// This file defines the commands that run a fixed subset of the pipeline:
//
// COMMAND USAGE:
//   retail clean-inventory    inventory stage only
//   retail clean-sales        sales stage only (needs Inventory_clean)
//   retail clean-all          inventory, then sales
//   retail build-model        star schema stage only (needs both clean tables)
//   retail run                all three stages
//
// Every command writes a run summary to the report directory and prints a
// short report to stdout; --verbose also lists every validation issue. A
// failed stage exits with status 1.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/retail-star-schema/internal/pipeline"
	"github.com/ginjaninja78/retail-star-schema/internal/validation"
)

// stageCommand describes a command that runs a fixed list of stages.
type stageCommand struct {
	use    string
	short  string
	long   string
	stages []pipeline.Stage
}

var stageCommands = []stageCommand{
	{
		use:   "clean-inventory",
		short: "Clean the raw inventory extract",
		long: `Reads the raw inventory, drops empty and incomplete rows, normalizes SKU
codes and stock, splits Category into BrandCode and CategoryName, applies the
duplicate SKU policy and writes Inventory_clean.

Fails without writing anything when a required column is missing.`,
		stages: []pipeline.Stage{pipeline.StageInventory},
	},
	{
		use:   "clean-sales",
		short: "Clean the raw sales extract against the clean inventory",
		long: `Reads the raw sales and Inventory_clean, drops incomplete rows and rows
with unparseable dates, normalizes quantities and SKU codes, drops sales whose
SKU is not in the inventory and writes Sales_clean.

Inventory_clean must already exist; run clean-inventory first.`,
		stages: []pipeline.Stage{pipeline.StageSales},
	},
	{
		use:    "clean-all",
		short:  "Clean the inventory, then the sales",
		long:   `Runs clean-inventory followed by clean-sales under one run ID.`,
		stages: []pipeline.Stage{pipeline.StageInventory, pipeline.StageSales},
	},
	{
		use:   "build-model",
		short: "Build DimProduct and FactSales from the clean tables",
		long: `Assigns ProductKey 1..N in Inventory_clean row order, joins Sales_clean on
SKU Code and writes DimProduct and FactSales. Optionally exports both as one
workbook (model.workbook_path) and loads them into SQLite (warehouse.path).`,
		stages: []pipeline.Stage{pipeline.StageModel},
	},
	{
		use:    "run",
		short:  "Run every stage",
		long:   `Runs clean-inventory, clean-sales and build-model under one run ID.`,
		stages: []pipeline.Stage{pipeline.StageInventory, pipeline.StageSales, pipeline.StageModel},
	},
}

func init() {
	for _, sc := range stageCommands {
		rootCmd.AddCommand(newStageCommand(sc))
	}
}

func newStageCommand(sc stageCommand) *cobra.Command {
	return &cobra.Command{
		Use:   sc.use,
		Short: sc.short,
		Long:  sc.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			res, err := pipeline.New(cfg, logger).Execute(cmd.Context(), sc.use, sc.stages...)
			printResult(cmd.OutOrStdout(), sc.use, res, verbose)
			return err
		},
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// printResult prints the outcome of a run. With showIssues every validation
// issue of the run is listed after the stage lines.
func printResult(w io.Writer, command string, res *pipeline.Result, showIssues bool) {
	if res == nil {
		return
	}

	fmt.Fprintf(w, "=== Retail Star Schema Pipeline: %s ===\n", command)
	fmt.Fprintf(w, "Run ID: %s\n", res.RunID)

	for _, st := range res.Stages {
		fmt.Fprintf(w, "  ✓ %-10s read %d, wrote %d, warnings %d, errors %d (%s)\n",
			st.Stage, st.RowsRead, st.RowsWritten, st.Warnings, st.Errors, st.Duration.Round(time.Millisecond))

		reasons := make([]string, 0, len(st.Dropped))
		for reason, n := range st.Dropped {
			if n > 0 {
				reasons = append(reasons, reason)
			}
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(w, "      dropped %d (%s)\n", st.Dropped[reason], reason)
		}
	}

	if showIssues {
		fmt.Fprintln(w, validation.FormatIssues(res.Issues))
	}

	if res.SummaryPath != "" {
		fmt.Fprintf(w, "Summary:   %s\n", res.SummaryPath)
	}
	if res.IssueLogPath != "" {
		fmt.Fprintf(w, "Issue log: %s\n", res.IssueLogPath)
	}
}
