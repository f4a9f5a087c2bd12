// =============================================================================
// Retail Star Schema Pipeline - Sales Cleaner
// =============================================================================
//
// The sales cleaner normalizes raw sales and reconciles them against the
// cleaned inventory. Its output only references SKU codes that exist in the
// inventory it was given.
//
// CLEANING STEPS (in order):
//   1. Drop fully empty rows, then rows missing SKU Code, Quantity or Date
//   2. Parse Date; unparseable rows are dropped
//   3. Coerce Quantity (invalid -> 0, negative -> 0, integer)
//   4. Normalize SKU Code with NormalizeSKU
//   5. Referential filter against the inventory SKU set
//
// =============================================================================

package cleaner

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
	"github.com/ginjaninja78/retail-star-schema/internal/validation"
)

// StageSales names the sales stage in reports and logs.
const StageSales = "sales"

// SalesRequiredColumns must be present in the raw sales extract.
var SalesRequiredColumns = []string{types.ColSKU, types.ColQuantity, types.ColDate}

// SalesStats counts what happened to the raw rows.
type SalesStats struct {
	RowsRead       int
	EmptyRows      int
	IncompleteRows int
	InvalidDates   int
	UnknownSKU     int
	RowsWritten    int
}

// SalesResult is the output of the sales cleaner.
type SalesResult struct {
	Records []types.SalesRecord
	Report  *validation.Report
	Stats   SalesStats
}

// SalesCleaner cleans raw sales tables against a cleaned inventory.
type SalesCleaner struct {
	cfg    config.SalesConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSalesCleaner creates a sales cleaner. A nil logger discards all output;
// a nil clock uses time.Now.
func NewSalesCleaner(cfg config.SalesConfig, logger *slog.Logger, now func() time.Time) *SalesCleaner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &SalesCleaner{
		cfg:    cfg,
		logger: logger.With("stage", StageSales),
		now:    now,
	}
}

// Clean validates and normalizes raw sales, keeping only rows whose SKU is
// present in inventory.
func (c *SalesCleaner) Clean(raw *types.Table, inventory []types.InventoryRecord) (*SalesResult, error) {
	if missing := raw.MissingColumns(SalesRequiredColumns...); len(missing) > 0 {
		c.logger.Error("required columns missing", "table", raw.Name, "missing", missing)
		return nil, &SchemaError{Table: raw.Name, Missing: missing}
	}
	c.logger.Info("cleaning sales", "table", raw.Name, "rows", raw.Len(), "inventory_skus", len(inventory))

	report := validation.NewReport(StageSales)
	result := &SalesResult{Report: report}
	result.Stats.RowsRead = raw.Len()

	c.profile(raw, report)

	var (
		records     []types.SalesRecord
		badDates    []string
		qtyInvalid  int
		qtyNegative int
	)

	for _, row := range raw.Rows {
		if types.IsRowEmpty(row) {
			result.Stats.EmptyRows++
			continue
		}

		skuCell := raw.Cell(row, types.ColSKU)
		qtyCell := raw.Cell(row, types.ColQuantity)
		dateCell := strings.TrimSpace(raw.Cell(row, types.ColDate))
		if strings.TrimSpace(skuCell) == "" || strings.TrimSpace(qtyCell) == "" || dateCell == "" {
			result.Stats.IncompleteRows++
			continue
		}

		date, ok := ParseDate(dateCell)
		if !ok {
			result.Stats.InvalidDates++
			badDates = append(badDates, dateCell)
			continue
		}

		qty, outcome := coerceCount(qtyCell)
		switch outcome {
		case countInvalid:
			qtyInvalid++
		case countNegative:
			qtyNegative++
		}

		records = append(records, types.SalesRecord{
			SKU:      NormalizeSKU(skuCell),
			Quantity: qty,
			Date:     date,
		})
	}

	report.Warn("empty_rows", result.Stats.EmptyRows, nil, "entirely empty rows dropped")
	report.Warn("incomplete_rows", result.Stats.IncompleteRows, nil,
		"rows missing SKU Code, Quantity or Date dropped")
	report.Warn("invalid_date", len(badDates), badDates, "rows with unparseable Date dropped")
	report.Warn("quantity_invalid", qtyInvalid, nil, "non-numeric Quantity set to 0")
	report.Warn("quantity_negative", qtyNegative, nil, "negative Quantity clamped to 0")

	// =========================================================================
	// REFERENTIAL FILTER
	// =========================================================================

	valid := make(map[string]struct{}, len(inventory))
	for _, r := range inventory {
		if r.SKU != "" {
			valid[r.SKU] = struct{}{}
		}
	}

	kept := records[:0:0]
	var unknown []string
	unknownSeen := make(map[string]bool)
	for _, r := range records {
		if _, ok := valid[r.SKU]; ok {
			kept = append(kept, r)
			continue
		}
		result.Stats.UnknownSKU++
		if !unknownSeen[r.SKU] {
			unknownSeen[r.SKU] = true
			unknown = append(unknown, r.SKU)
		}
	}

	report.Warn("unknown_sku", result.Stats.UnknownSKU, unknown,
		"%d sales rows dropped: SKU not found in clean inventory", result.Stats.UnknownSKU)

	result.Records = kept
	result.Stats.RowsWritten = len(kept)

	c.verify(kept, report)
	report.Log(c.logger)

	if report.Passed() {
		c.logger.Info("post-cleaning validation passed", "rows", len(kept))
	}

	return result, nil
}

// profile records type anomalies of the raw extract before cleaning.
func (c *SalesCleaner) profile(raw *types.Table, report *validation.Report) {
	var nonNumeric, badDates, short []string

	for _, row := range raw.Rows {
		if qty := strings.TrimSpace(raw.Cell(row, types.ColQuantity)); qty != "" {
			if _, ok := parseNumber(qty); !ok {
				nonNumeric = append(nonNumeric, qty)
			}
		}
		if date := strings.TrimSpace(raw.Cell(row, types.ColDate)); date != "" {
			if _, ok := ParseDate(date); !ok {
				badDates = append(badDates, date)
			}
		}
		if sku := strings.TrimSpace(raw.Cell(row, types.ColSKU)); sku != "" && len(sku) < minSKULength {
			short = append(short, sku)
		}
	}

	report.Warn("non_numeric_quantity", len(nonNumeric), nonNumeric, "Quantity column contains non-numeric values")
	report.Warn("raw_date_format", len(badDates), badDates, "Date values that cannot be parsed")
	report.Warn("short_sku", len(short), short, "SKU codes shorter than %d characters", minSKULength)
}

// verify runs the post-cleaning checks. They only observe.
func (c *SalesCleaner) verify(records []types.SalesRecord, report *validation.Report) {
	var negative, missingDate, emptySKU, future, high []string

	today := calendarDay(c.now())
	for _, r := range records {
		if r.Quantity < 0 {
			negative = append(negative, r.SKU)
		}
		if r.Date.IsZero() {
			missingDate = append(missingDate, r.SKU)
		}
		if strings.TrimSpace(r.SKU) == "" {
			emptySKU = append(emptySKU, r.SKU)
		}
		if r.Date.After(today) {
			future = append(future, r.Date.Format(types.DateLayout))
		}
		if c.cfg.QuantityThreshold > 0 && r.Quantity > c.cfg.QuantityThreshold {
			high = append(high, r.SKU+"="+strconv.Itoa(r.Quantity))
		}
	}

	report.Error("negative_quantity", len(negative), negative, "negative Quantity after cleaning")
	report.Error("missing_date", len(missingDate), missingDate, "missing Date after cleaning")
	report.Error("empty_sku", len(emptySKU), emptySKU, "empty SKU Code after cleaning")
	report.Warn("future_date", len(future), future, "%d sales are dated in the future", len(future))
	report.Warn("high_quantity", len(high), high, "quantities above %d look unusually high", c.cfg.QuantityThreshold)
}
