// =============================================================================
// Retail Star Schema Pipeline - Star Schema Builder
// =============================================================================
//
// The builder projects the cleaned inventory into the DimProduct dimension
// and joins the cleaned sales against it to produce the FactSales table.
//
// KEYS:
//   ProductKey : 1..N in cleaned inventory row order, regenerated every build
//   DateKey    : sale date as the integer YYYYMMDD
//
// JOIN POLICY:
//   "inner" : sales without a matching product are dropped and counted
//   "left"  : they are kept with an absent ProductKey and counted
//
// =============================================================================

package starschema

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
	"github.com/ginjaninja78/retail-star-schema/internal/validation"
)

// StageModel names the model stage in reports and logs.
const StageModel = "model"

// BuildDimProduct selects the descriptive columns of the cleaned inventory and
// assigns ProductKey densely from 1 in row order.
func BuildDimProduct(inventory []types.InventoryRecord) []types.ProductDim {
	dim := make([]types.ProductDim, len(inventory))
	for i, r := range inventory {
		dim[i] = types.ProductDim{
			ProductKey:   i + 1,
			SKU:          r.SKU,
			DesignNumber: r.DesignNumber,
			Size:         r.Size,
			Color:        r.Color,
			BrandCode:    r.BrandCode,
			CategoryName: r.CategoryName,
		}
	}
	return dim
}

// DateKey formats a date as the integer YYYYMMDD.
func DateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// FactStats counts what happened to the sales rows during the join.
type FactStats struct {
	SalesRead   int
	Unmatched   int
	RowsWritten int
}

// FactResult is the output of the fact build.
type FactResult struct {
	Rows   []types.SalesFact
	Report *validation.Report
	Stats  FactStats
}

// Builder builds the fact table under a join policy.
type Builder struct {
	cfg    config.ModelConfig
	logger *slog.Logger
}

// NewBuilder creates a builder. A nil logger discards all output.
func NewBuilder(cfg config.ModelConfig, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{cfg: cfg, logger: logger.With("stage", StageModel)}
}

// BuildFactSales resolves every sale's ProductKey against dim and derives its
// DateKey. Rows keep the order of sales.
func (b *Builder) BuildFactSales(sales []types.SalesRecord, dim []types.ProductDim) (*FactResult, error) {
	keys := make(map[string]int, len(dim))
	for _, p := range dim {
		if _, dup := keys[p.SKU]; dup {
			return nil, fmt.Errorf("DimProduct has duplicate SKU %q", p.SKU)
		}
		keys[p.SKU] = p.ProductKey
	}

	b.logger.Info("building fact table", "sales", len(sales), "products", len(dim), "join", b.cfg.FactJoin)

	report := validation.NewReport(StageModel)
	result := &FactResult{Report: report}
	result.Stats.SalesRead = len(sales)

	var unmatched []string
	seen := make(map[string]bool)
	rows := make([]types.SalesFact, 0, len(sales))

	for _, s := range sales {
		fact := types.SalesFact{DateKey: DateKey(s.Date), Quantity: s.Quantity}

		key, ok := keys[s.SKU]
		if ok {
			fact.ProductKey = &key
		} else {
			result.Stats.Unmatched++
			if !seen[s.SKU] {
				seen[s.SKU] = true
				unmatched = append(unmatched, s.SKU)
			}
			if b.cfg.FactJoin != config.JoinLeft {
				continue
			}
		}
		rows = append(rows, fact)
	}

	if b.cfg.FactJoin == config.JoinLeft {
		report.Warn("unmatched_product", result.Stats.Unmatched, unmatched,
			"%d fact rows kept without ProductKey", result.Stats.Unmatched)
	} else {
		report.Warn("unmatched_product", result.Stats.Unmatched, unmatched,
			"%d sales rows dropped: SKU not found in DimProduct", result.Stats.Unmatched)
	}

	var badKeys []string
	for _, f := range rows {
		if f.DateKey < 10000101 || f.DateKey > 99991231 {
			badKeys = append(badKeys, fmt.Sprint(f.DateKey))
		}
	}
	report.Error("date_key_format", len(badKeys), badKeys, "DateKey values that are not 8-digit YYYYMMDD")

	result.Rows = rows
	result.Stats.RowsWritten = len(rows)
	report.Log(b.logger)

	b.logger.Info("fact table built", "rows", len(rows), "unmatched", result.Stats.Unmatched)
	return result, nil
}
