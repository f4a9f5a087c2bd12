// =============================================================================
// Retail Star Schema Pipeline - Warehouse Sink
// =============================================================================
//
// The warehouse loads the built star schema into a SQLite database so it can
// be queried with SQL. Every load is a full refresh: both tables are emptied
// and refilled inside one transaction, so readers see either the previous
// build or the new one.
//
// TABLES:
//   dim_product : one row per product, primary key product_key
//   fact_sales  : one row per sale, product_key NULL for left-join misses
//
// =============================================================================

package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

// DimProductRow is the dim_product table.
type DimProductRow struct {
	ProductKey   int    `gorm:"column:product_key;primaryKey;autoIncrement:false"`
	SKU          string `gorm:"column:sku_code;uniqueIndex;not null"`
	DesignNumber string `gorm:"column:design_no"`
	Size         string `gorm:"column:size"`
	Color        string `gorm:"column:color"`
	BrandCode    string `gorm:"column:brand_code;index"`
	CategoryName string `gorm:"column:category_name;index"`
}

// TableName sets the table name.
func (DimProductRow) TableName() string { return "dim_product" }

// FactSalesRow is the fact_sales table.
type FactSalesRow struct {
	ID         uint `gorm:"column:id;primaryKey"`
	DateKey    int  `gorm:"column:date_key;index;not null"`
	ProductKey *int `gorm:"column:product_key;index"`
	Quantity   int  `gorm:"column:quantity;not null"`
}

// TableName sets the table name.
func (FactSalesRow) TableName() string { return "fact_sales" }

// LoadStats reports what a load wrote.
type LoadStats struct {
	Products int
	Facts    int
}

// Warehouse is an open SQLite warehouse.
type Warehouse struct {
	db        *gorm.DB
	batchSize int
	logger    *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the star schema tables. A batchSize of 0 or less uses 500 rows per insert.
func Open(path string, batchSize int, logger *slog.Logger) (*Warehouse, error) {
	if path == "" {
		return nil, errors.New("warehouse path is empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if batchSize <= 0 {
		batchSize = 500
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create warehouse directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse %s: %w", path, err)
	}

	if err := db.AutoMigrate(&DimProductRow{}, &FactSalesRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate warehouse schema: %w", err)
	}

	return &Warehouse{db: db, batchSize: batchSize, logger: logger.With("component", "warehouse")}, nil
}

// Close closes the underlying database.
func (w *Warehouse) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load replaces the contents of dim_product and fact_sales.
func (w *Warehouse) Load(ctx context.Context, dim []types.ProductDim, facts []types.SalesFact) (LoadStats, error) {
	products := make([]DimProductRow, len(dim))
	for i, p := range dim {
		products[i] = DimProductRow{
			ProductKey:   p.ProductKey,
			SKU:          p.SKU,
			DesignNumber: p.DesignNumber,
			Size:         p.Size,
			Color:        p.Color,
			BrandCode:    p.BrandCode,
			CategoryName: p.CategoryName,
		}
	}

	sales := make([]FactSalesRow, len(facts))
	for i, f := range facts {
		sales[i] = FactSalesRow{DateKey: f.DateKey, ProductKey: f.ProductKey, Quantity: f.Quantity}
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purge := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := purge.Delete(&FactSalesRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear fact_sales: %w", err)
		}
		if err := purge.Delete(&DimProductRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear dim_product: %w", err)
		}

		if len(products) > 0 {
			if err := tx.CreateInBatches(products, w.batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert dim_product: %w", err)
			}
		}
		if len(sales) > 0 {
			if err := tx.CreateInBatches(sales, w.batchSize).Error; err != nil {
				return fmt.Errorf("failed to insert fact_sales: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return LoadStats{}, err
	}

	stats := LoadStats{Products: len(products), Facts: len(sales)}
	w.logger.Info("warehouse loaded", "products", stats.Products, "facts", stats.Facts)
	return stats, nil
}

// Counts returns the number of rows in dim_product and fact_sales.
func (w *Warehouse) Counts(ctx context.Context) (products, facts int64, err error) {
	db := w.db.WithContext(ctx)
	if err := db.Model(&DimProductRow{}).Count(&products).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&FactSalesRow{}).Count(&facts).Error; err != nil {
		return 0, 0, err
	}
	return products, facts, nil
}
