package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/retail-star-schema/internal/cleaner"
	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/starschema"
	"github.com/ginjaninja78/retail-star-schema/internal/tableio"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
	"github.com/ginjaninja78/retail-star-schema/internal/validation"
	"github.com/ginjaninja78/retail-star-schema/internal/warehouse"
	"github.com/ginjaninja78/retail-star-schema/pkg/utils"
)

// stagingCSV reads the tables written by earlier stages.
var stagingCSV = config.CSVSettings{Delimiter: ",", Encoding: "UTF-8"}

// =============================================================================
// STAGE 1: INVENTORY
// =============================================================================

func (p *Pipeline) cleanInventory(r *run) error {
	started := time.Now()
	paths := p.cfg.Paths

	// =========================================================================
	// STEP 1: LOAD RAW INVENTORY
	// =========================================================================

	if err := requireInput(paths.RawInventory, "raw inventory"); err != nil {
		return err
	}
	raw, err := tableio.Load(paths.RawInventory, p.cfg.CSV)
	if err != nil {
		return fmt.Errorf("failed to load raw inventory: %w", err)
	}

	// =========================================================================
	// STEP 2: CLEAN
	// =========================================================================
	// A schema error or a rejected duplicate stops here, before anything is
	// written.

	res, err := cleaner.NewInventoryCleaner(p.cfg.Inventory, r.logger).Clean(raw)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: PERSIST
	// =========================================================================

	if err := tableio.Save(types.InventoryTable(res.Records), paths.CleanInventory); err != nil {
		return fmt.Errorf("failed to write clean inventory: %w", err)
	}
	r.logger.Info("wrote clean inventory", "path", paths.CleanInventory, "rows", res.Stats.RowsWritten)

	summary := stageSummary(StageInventory, res.Report, started)
	summary.Inputs = []string{paths.RawInventory}
	summary.Outputs = []string{paths.CleanInventory}
	summary.RowsRead = res.Stats.RowsRead
	summary.RowsWritten = res.Stats.RowsWritten
	summary.Dropped = map[string]int{
		"empty_rows":                 res.Stats.EmptyRows,
		"incomplete_rows":            res.Stats.IncompleteRows,
		"category_without_separator": res.Stats.CategoryDropped,
		"duplicate_sku":              res.Stats.DuplicatesRemoved,
	}

	p.observe(summary)
	r.record(summary, res.Report)
	return nil
}

// =============================================================================
// STAGE 2: SALES
// =============================================================================

func (p *Pipeline) cleanSales(r *run) error {
	started := time.Now()
	paths := p.cfg.Paths

	// =========================================================================
	// STEP 1: LOAD CLEAN INVENTORY AND RAW SALES
	// =========================================================================

	inventory, err := p.loadCleanInventory()
	if err != nil {
		return err
	}

	if err := requireInput(paths.RawSales, "raw sales"); err != nil {
		return err
	}
	raw, err := tableio.Load(paths.RawSales, p.cfg.CSV)
	if err != nil {
		return fmt.Errorf("failed to load raw sales: %w", err)
	}

	// =========================================================================
	// STEP 2: CLEAN AND RECONCILE
	// =========================================================================

	res, err := cleaner.NewSalesCleaner(p.cfg.Sales, r.logger, p.now).Clean(raw, inventory)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: PERSIST
	// =========================================================================

	if err := tableio.Save(types.SalesTable(res.Records), paths.CleanSales); err != nil {
		return fmt.Errorf("failed to write clean sales: %w", err)
	}
	r.logger.Info("wrote clean sales", "path", paths.CleanSales, "rows", res.Stats.RowsWritten,
		"unknown_sku", res.Stats.UnknownSKU)

	summary := stageSummary(StageSales, res.Report, started)
	summary.Inputs = []string{paths.RawSales, paths.CleanInventory}
	summary.Outputs = []string{paths.CleanSales}
	summary.RowsRead = res.Stats.RowsRead
	summary.RowsWritten = res.Stats.RowsWritten
	summary.Dropped = map[string]int{
		"empty_rows":      res.Stats.EmptyRows,
		"incomplete_rows": res.Stats.IncompleteRows,
		"invalid_date":    res.Stats.InvalidDates,
		"unknown_sku":     res.Stats.UnknownSKU,
	}

	p.observe(summary)
	r.record(summary, res.Report)
	return nil
}

// =============================================================================
// STAGE 3: STAR SCHEMA
// =============================================================================

func (p *Pipeline) buildModel(ctx context.Context, r *run) error {
	started := time.Now()
	paths := p.cfg.Paths

	// =========================================================================
	// STEP 1: LOAD CLEAN TABLES
	// =========================================================================

	inventory, err := p.loadCleanInventory()
	if err != nil {
		return err
	}

	if err := requireInput(paths.CleanSales, "clean sales (run clean-sales first)"); err != nil {
		return err
	}
	salesTable, err := tableio.Load(paths.CleanSales, stagingCSV)
	if err != nil {
		return fmt.Errorf("failed to load clean sales: %w", err)
	}
	sales, err := types.SalesFromTable(salesTable)
	if err != nil {
		return fmt.Errorf("failed to read clean sales: %w", err)
	}

	// =========================================================================
	// STEP 2: BUILD DIMENSION AND FACTS
	// =========================================================================

	dim := starschema.BuildDimProduct(inventory)
	facts, err := starschema.NewBuilder(p.cfg.Model, r.logger).BuildFactSales(sales, dim)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: PERSIST
	// =========================================================================

	dimTable := types.DimProductTable(dim)
	factTable := types.FactSalesTable(facts.Rows)

	// DimProduct and FactSales share ProductKey, so neither is replaced
	// unless both were written.
	if err := tableio.SaveAll(
		tableio.Output{Table: dimTable, Path: paths.DimProduct},
		tableio.Output{Table: factTable, Path: paths.FactSales},
	); err != nil {
		return fmt.Errorf("failed to write star schema: %w", err)
	}
	outputs := []string{paths.DimProduct, paths.FactSales}

	if wb := p.cfg.Model.WorkbookPath; wb != "" {
		if err := tableio.SaveWorkbook(wb, dimTable, factTable); err != nil {
			return fmt.Errorf("failed to write model workbook: %w", err)
		}
		outputs = append(outputs, wb)
	}

	// =========================================================================
	// STEP 4: LOAD WAREHOUSE (OPTIONAL)
	// =========================================================================

	if p.cfg.Warehouse.Path != "" {
		if err := p.loadWarehouse(ctx, r, dim, facts.Rows); err != nil {
			return err
		}
		outputs = append(outputs, p.cfg.Warehouse.Path)
	}

	r.logger.Info("wrote star schema", "products", len(dim), "facts", len(facts.Rows))

	summary := stageSummary(StageModel, facts.Report, started)
	summary.Inputs = []string{paths.CleanInventory, paths.CleanSales}
	summary.Outputs = outputs
	summary.RowsRead = facts.Stats.SalesRead
	summary.RowsWritten = facts.Stats.RowsWritten
	if p.cfg.Model.FactJoin != config.JoinLeft {
		summary.Dropped = map[string]int{"unmatched_product": facts.Stats.Unmatched}
	}

	p.observe(summary)
	r.record(summary, facts.Report)
	return nil
}

func (p *Pipeline) loadWarehouse(ctx context.Context, r *run, dim []types.ProductDim, facts []types.SalesFact) error {
	wh, err := warehouse.Open(p.cfg.Warehouse.Path, p.cfg.Warehouse.BatchSize, r.logger)
	if err != nil {
		return err
	}
	defer wh.Close()

	if _, err := wh.Load(ctx, dim, facts); err != nil {
		return fmt.Errorf("failed to load warehouse: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadCleanInventory reads the table written by the inventory stage.
func (p *Pipeline) loadCleanInventory() ([]types.InventoryRecord, error) {
	path := p.cfg.Paths.CleanInventory
	if err := requireInput(path, "clean inventory (run clean-inventory first)"); err != nil {
		return nil, err
	}
	table, err := tableio.Load(path, stagingCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to load clean inventory: %w", err)
	}
	records, err := types.InventoryFromTable(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read clean inventory: %w", err)
	}
	return records, nil
}

func requireInput(path, what string) error {
	if !utils.FileExists(path) {
		return fmt.Errorf("%w: %s at %s", ErrMissingInput, what, path)
	}
	return nil
}

func stageSummary(stage Stage, report *validation.Report, started time.Time) utils.StageSummary {
	warnings, errs := report.Counts()
	return utils.StageSummary{
		Stage:    string(stage),
		Warnings: warnings,
		Errors:   errs,
		Duration: time.Since(started),
	}
}
