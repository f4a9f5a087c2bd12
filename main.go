// =============================================================================
// Retail Star Schema Pipeline - Main Entry Point
// =============================================================================
//
// This is the main entry point for the retail CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   retail clean-inventory  - Clean the raw inventory extract
//   retail clean-sales      - Clean the raw sales extract
//   retail clean-all        - Clean inventory, then sales
//   retail build-model      - Build DimProduct and FactSales
//   retail run              - Run every stage
//   retail schedule         - Run every stage on a cron schedule
//   retail version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : pipeline stages, table I/O, sinks and metrics
//   - pkg/       : run report utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/retail-star-schema/cmd"
)

func main() {
	cmd.Execute()
}
