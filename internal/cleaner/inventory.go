// =============================================================================
// Retail Star Schema Pipeline - Inventory Cleaner
// =============================================================================
//
// The inventory cleaner turns the raw inventory extract into the canonical
// inventory table, the source of truth for valid SKU codes.
//
// CLEANING STEPS (in order):
//   1. Drop rows that are entirely empty
//   2. Drop rows missing SKU Code, Design No. or Category
//   3. Normalize SKU Code (trim, upper-case)
//   4. Normalize Stock (missing -> 0, negative -> 0, integer)
//   5. Split Category "<BrandCode>:<CategoryName>" on the first ':'
//   6. Report duplicate SKU groups, then apply the duplicate policy
//
// Only missing required columns (and the "reject" duplicate policy) fail
// the stage. Everything else is recorded in the validation report.
//
// =============================================================================

package cleaner

import (
	"log/slog"
	"strings"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
	"github.com/ginjaninja78/retail-star-schema/internal/validation"
)

// StageInventory names the inventory stage in reports and logs.
const StageInventory = "inventory"

// InventoryRequiredColumns must be present in the raw inventory.
var InventoryRequiredColumns = []string{types.ColSKU, types.ColDesignNumber, types.ColCategory, types.ColStock}

// minSKULength is the SKU length below which a code is reported as suspect.
const minSKULength = 3

// =============================================================================
// RESULT
// =============================================================================

// InventoryStats counts what happened to the raw rows.
type InventoryStats struct {
	RowsRead          int
	EmptyRows         int
	IncompleteRows    int
	MissingSeparator  int
	CategoryDropped   int
	DuplicateGroups   int
	DuplicatesRemoved int
	RowsWritten       int
}

// InventoryResult is the output of the inventory cleaner.
type InventoryResult struct {
	Records []types.InventoryRecord
	Report  *validation.Report
	Stats   InventoryStats
}

// =============================================================================
// INVENTORY CLEANER
// =============================================================================

// InventoryCleaner cleans raw inventory tables.
type InventoryCleaner struct {
	cfg    config.InventoryConfig
	logger *slog.Logger
}

// NewInventoryCleaner creates an inventory cleaner. A nil logger discards
// all output.
func NewInventoryCleaner(cfg config.InventoryConfig, logger *slog.Logger) *InventoryCleaner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &InventoryCleaner{
		cfg:    cfg,
		logger: logger.With("stage", StageInventory),
	}
}

// Clean validates and normalizes a raw inventory table. The returned records
// are unique by SKU.
func (c *InventoryCleaner) Clean(raw *types.Table) (*InventoryResult, error) {
	if missing := raw.MissingColumns(InventoryRequiredColumns...); len(missing) > 0 {
		c.logger.Error("required columns missing", "table", raw.Name, "missing", missing)
		return nil, &SchemaError{Table: raw.Name, Missing: missing}
	}
	c.logger.Info("cleaning inventory", "table", raw.Name, "rows", raw.Len())

	report := validation.NewReport(StageInventory)
	result := &InventoryResult{Report: report}
	result.Stats.RowsRead = raw.Len()

	c.profile(raw, report)

	// =========================================================================
	// STEPS 1-5: ROW-LEVEL CLEANING
	// =========================================================================

	var (
		records       []types.InventoryRecord
		stockMissing  int
		stockNegative int
		stockInvalid  int
		noSeparator   []string
	)

	for _, row := range raw.Rows {
		if types.IsRowEmpty(row) {
			result.Stats.EmptyRows++
			continue
		}

		sku := NormalizeSKU(raw.Cell(row, types.ColSKU))
		design := strings.TrimSpace(raw.Cell(row, types.ColDesignNumber))
		category := strings.TrimSpace(raw.Cell(row, types.ColCategory))
		if sku == "" || design == "" || category == "" {
			result.Stats.IncompleteRows++
			continue
		}

		stock, outcome := coerceCount(raw.Cell(row, types.ColStock))
		switch outcome {
		case countMissing:
			stockMissing++
		case countNegative:
			stockNegative++
		case countInvalid:
			stockInvalid++
		}

		brand, name, ok := splitCategory(category)
		if !ok {
			result.Stats.MissingSeparator++
			noSeparator = append(noSeparator, category)
			if c.cfg.CategoryPolicy == config.CategoryDrop {
				result.Stats.CategoryDropped++
				continue
			}
			brand, name = category, c.cfg.CategoryFallback
		}

		records = append(records, types.InventoryRecord{
			SKU:          sku,
			DesignNumber: design,
			Size:         strings.TrimSpace(raw.Cell(row, types.ColSize)),
			Color:        strings.TrimSpace(raw.Cell(row, types.ColColor)),
			BrandCode:    brand,
			CategoryName: name,
			Stock:        stock,
		})
	}

	report.Warn("empty_rows", result.Stats.EmptyRows, nil, "entirely empty rows dropped")
	report.Warn("incomplete_rows", result.Stats.IncompleteRows, nil,
		"rows missing SKU Code, Design No. or Category dropped")
	report.Warn("stock_missing", stockMissing, nil, "missing Stock set to 0")
	report.Warn("stock_negative", stockNegative, nil, "negative Stock clamped to 0")
	report.Warn("stock_invalid", stockInvalid, nil, "non-numeric Stock set to 0")

	if c.cfg.CategoryPolicy == config.CategoryDrop {
		report.Warn("category_without_separator", len(noSeparator), noSeparator,
			"rows whose Category has no ':' dropped")
	} else {
		report.Warn("category_without_separator", len(noSeparator), noSeparator,
			"Category without ':' kept with CategoryName %q", c.cfg.CategoryFallback)
	}

	// =========================================================================
	// STEP 6: DUPLICATE SKU CODES
	// =========================================================================

	records, err := c.dedupe(records, result, report)
	if err != nil {
		report.Log(c.logger)
		return nil, err
	}

	result.Records = records
	result.Stats.RowsWritten = len(records)

	c.verify(records, report)
	report.Log(c.logger)

	if report.Passed() {
		c.logger.Info("post-cleaning validation passed", "rows", len(records))
	}

	return result, nil
}

// profile records type anomalies of the raw extract before cleaning.
func (c *InventoryCleaner) profile(raw *types.Table, report *validation.Report) {
	var nonNumeric, short, noSeparator []string

	for _, row := range raw.Rows {
		if stock := strings.TrimSpace(raw.Cell(row, types.ColStock)); stock != "" {
			if _, ok := parseNumber(stock); !ok {
				nonNumeric = append(nonNumeric, stock)
			}
		}
		if sku := strings.TrimSpace(raw.Cell(row, types.ColSKU)); sku != "" && len(sku) < minSKULength {
			short = append(short, sku)
		}
		if cat := strings.TrimSpace(raw.Cell(row, types.ColCategory)); cat != "" && !strings.Contains(cat, ":") {
			noSeparator = append(noSeparator, cat)
		}
	}

	report.Warn("non_numeric_stock", len(nonNumeric), nonNumeric, "Stock column contains non-numeric values")
	report.Warn("short_sku", len(short), short, "SKU codes shorter than %d characters", minSKULength)
	report.Warn("raw_category_format", len(noSeparator), noSeparator, "Category values without ':' in the raw extract")
}

// dedupe reports duplicate SKU groups and enforces the duplicate policy.
func (c *InventoryCleaner) dedupe(records []types.InventoryRecord, result *InventoryResult, report *validation.Report) ([]types.InventoryRecord, error) {
	positions := make(map[string][]int, len(records))
	var order []string
	for i, r := range records {
		if _, seen := positions[r.SKU]; !seen {
			order = append(order, r.SKU)
		}
		positions[r.SKU] = append(positions[r.SKU], i)
	}

	var dupSKUs []string
	dupRows := 0
	for _, sku := range order {
		if n := len(positions[sku]); n > 1 {
			dupSKUs = append(dupSKUs, sku)
			dupRows += n
		}
	}
	if len(dupSKUs) == 0 {
		return records, nil
	}

	result.Stats.DuplicateGroups = len(dupSKUs)
	report.Warn("duplicate_sku", dupRows, dupSKUs,
		"%d SKU codes appear more than once (policy %s)", len(dupSKUs), c.cfg.DuplicatePolicy)

	if c.cfg.DuplicatePolicy == config.DuplicateReject {
		return nil, &DuplicateKeyError{SKUs: dupSKUs}
	}

	keep := make([]bool, len(records))
	for _, idx := range positions {
		if c.cfg.DuplicatePolicy == config.DuplicateKeepLast {
			keep[idx[len(idx)-1]] = true
		} else {
			keep[idx[0]] = true
		}
	}

	unique := make([]types.InventoryRecord, 0, len(positions))
	for i, r := range records {
		if keep[i] {
			unique = append(unique, r)
		}
	}
	result.Stats.DuplicatesRemoved = len(records) - len(unique)
	return unique, nil
}

// verify runs the post-cleaning checks. They only observe.
func (c *InventoryCleaner) verify(records []types.InventoryRecord, report *validation.Report) {
	var negative, emptyBrand, emptyName, badShape, dups []string
	seen := make(map[string]bool, len(records))

	for _, r := range records {
		if r.Stock < 0 {
			negative = append(negative, r.SKU)
		}
		if strings.TrimSpace(r.BrandCode) == "" {
			emptyBrand = append(emptyBrand, r.SKU)
		}
		if strings.TrimSpace(r.CategoryName) == "" {
			emptyName = append(emptyName, r.SKU)
		}
		if seen[r.SKU] {
			dups = append(dups, r.SKU)
		}
		seen[r.SKU] = true
		if c.cfg.SKUSeparator != "" && !strings.Contains(r.SKU, c.cfg.SKUSeparator) {
			badShape = append(badShape, r.SKU)
		}
	}

	report.Error("negative_stock", len(negative), negative, "negative Stock after cleaning")
	report.Error("empty_brand_code", len(emptyBrand), emptyBrand, "empty BrandCode after cleaning")
	report.Error("empty_category_name", len(emptyName), emptyName, "empty CategoryName after cleaning")
	report.Error("duplicate_sku_after_cleaning", len(dups), dups, "duplicate SKU codes after cleaning")
	report.Warn("sku_format", len(badShape), badShape, "SKU codes without %q look unusual", c.cfg.SKUSeparator)
}

// splitCategory splits "<BrandCode>:<CategoryName>" on the first ':'.
func splitCategory(category string) (brand, name string, ok bool) {
	b, n, found := strings.Cut(category, ":")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(b), strings.TrimSpace(n), true
}
