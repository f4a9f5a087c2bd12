// =============================================================================
// Retail Star Schema Pipeline - Shared Types
// =============================================================================
//
// This package contains the table and record types shared by every stage of
// the pipeline. Types defined here are used by:
//   - tableio    (load/persist)
//   - cleaner    (inventory and sales cleaning)
//   - starschema (dimension and fact construction)
//   - warehouse  (SQLite sink)
//
// Raw extracts are always handled as an untyped Table. Cleaned outputs are
// typed records that convert back to a Table for staging on disk.
//
// =============================================================================

package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Column headers used by the raw extracts and the generated tables.
const (
	ColSKU          = "SKU Code"
	ColDesignNumber = "Design No."
	ColCategory     = "Category"
	ColStock        = "Stock"
	ColSize         = "Size"
	ColColor        = "Color"
	ColBrandCode    = "BrandCode"
	ColCategoryName = "CategoryName"
	ColQuantity     = "Quantity"
	ColDate         = "Date"
	ColProductKey   = "ProductKey"
	ColDateKey      = "DateKey"
)

// DateLayout is the layout used for every date written by the pipeline.
const DateLayout = "2006-01-02"

// Output column orders.
var (
	InventoryColumns  = []string{ColSKU, ColDesignNumber, ColSize, ColColor, ColBrandCode, ColCategoryName, ColStock}
	SalesColumns      = []string{ColSKU, ColQuantity, ColDate}
	DimProductColumns = []string{ColProductKey, ColSKU, ColDesignNumber, ColSize, ColColor, ColBrandCode, ColCategoryName}
	FactSalesColumns  = []string{ColDateKey, ColProductKey, ColQuantity}
)

// =============================================================================
// TABLE
// =============================================================================

// Table is an in-memory, header-addressed table of string cells.
// A Table handed to another stage must be treated as read-only.
type Table struct {
	// Name identifies the table in logs and reports (e.g. "Inventory_raw").
	Name string

	// Headers holds the column names in file order.
	Headers []string

	// Rows holds the data rows. Rows may be shorter than Headers; missing
	// trailing cells read as "".
	Rows [][]string
}

// NewTable creates an empty table with the given headers.
func NewTable(name string, headers ...string) *Table {
	h := make([]string, len(headers))
	copy(h, headers)
	return &Table{Name: name, Headers: h}
}

// Append adds a row to the table.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(cells))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column, or -1 if it is absent.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// MissingColumns returns the required columns that the table does not have,
// in the order they were requested.
func (t *Table) MissingColumns(required ...string) []string {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Cell returns the value of a column in a row, or "" when the column or the
// cell is absent.
func (t *Table) Cell(row []string, column string) string {
	i := t.ColumnIndex(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// IsRowEmpty reports whether every cell of a row is blank.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// INVENTORY
// =============================================================================

// InventoryRecord is one row of the cleaned inventory. SKU is unique across
// a cleaned inventory table.
type InventoryRecord struct {
	SKU          string
	DesignNumber string
	Size         string
	Color        string
	BrandCode    string
	CategoryName string
	Stock        int
}

// InventoryTable converts cleaned inventory records into the Inventory_clean
// table layout.
func InventoryTable(records []InventoryRecord) *Table {
	t := NewTable("Inventory_clean", InventoryColumns...)
	for _, r := range records {
		t.Append(r.SKU, r.DesignNumber, r.Size, r.Color, r.BrandCode, r.CategoryName, strconv.Itoa(r.Stock))
	}
	return t
}

// InventoryFromTable reads a previously persisted Inventory_clean table.
// The table is trusted; a malformed Stock value indicates a corrupted file
// and is returned as an error.
func InventoryFromTable(t *Table) ([]InventoryRecord, error) {
	if missing := t.MissingColumns(ColSKU, ColDesignNumber, ColBrandCode, ColCategoryName, ColStock); len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing columns %v", t.Name, missing)
	}

	records := make([]InventoryRecord, 0, t.Len())
	for i, row := range t.Rows {
		stock, err := cast.ToIntE(strings.TrimSpace(t.Cell(row, ColStock)))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid stock %q: %w", t.Name, i+2, t.Cell(row, ColStock), err)
		}
		records = append(records, InventoryRecord{
			SKU:          t.Cell(row, ColSKU),
			DesignNumber: t.Cell(row, ColDesignNumber),
			Size:         t.Cell(row, ColSize),
			Color:        t.Cell(row, ColColor),
			BrandCode:    t.Cell(row, ColBrandCode),
			CategoryName: t.Cell(row, ColCategoryName),
			Stock:        stock,
		})
	}
	return records, nil
}

// =============================================================================
// SALES
// =============================================================================

// SalesRecord is one row of the cleaned sales table.
type SalesRecord struct {
	SKU      string
	Quantity int
	Date     time.Time
}

// SalesTable converts cleaned sales records into the Sales_clean layout.
func SalesTable(records []SalesRecord) *Table {
	t := NewTable("Sales_clean", SalesColumns...)
	for _, r := range records {
		t.Append(r.SKU, strconv.Itoa(r.Quantity), r.Date.Format(DateLayout))
	}
	return t
}

// SalesFromTable reads a previously persisted Sales_clean table.
func SalesFromTable(t *Table) ([]SalesRecord, error) {
	if missing := t.MissingColumns(SalesColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing columns %v", t.Name, missing)
	}

	records := make([]SalesRecord, 0, t.Len())
	for i, row := range t.Rows {
		qty, err := cast.ToIntE(strings.TrimSpace(t.Cell(row, ColQuantity)))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid quantity %q: %w", t.Name, i+2, t.Cell(row, ColQuantity), err)
		}
		date, err := time.Parse(DateLayout, strings.TrimSpace(t.Cell(row, ColDate)))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid date %q: %w", t.Name, i+2, t.Cell(row, ColDate), err)
		}
		records = append(records, SalesRecord{
			SKU:      t.Cell(row, ColSKU),
			Quantity: qty,
			Date:     date,
		})
	}
	return records, nil
}

// =============================================================================
// STAR SCHEMA
// =============================================================================

// ProductDim is one row of DimProduct.
type ProductDim struct {
	ProductKey   int
	SKU          string
	DesignNumber string
	Size         string
	Color        string
	BrandCode    string
	CategoryName string
}

// SalesFact is one row of FactSales. ProductKey is nil when the sale could
// not be resolved against DimProduct (only possible with a left join).
type SalesFact struct {
	DateKey    int
	ProductKey *int
	Quantity   int
}

// DimProductTable converts dimension rows into the DimProduct layout.
func DimProductTable(rows []ProductDim) *Table {
	t := NewTable("DimProduct", DimProductColumns...)
	for _, r := range rows {
		t.Append(strconv.Itoa(r.ProductKey), r.SKU, r.DesignNumber, r.Size, r.Color, r.BrandCode, r.CategoryName)
	}
	return t
}

// FactSalesTable converts fact rows into the FactSales layout. An absent
// ProductKey is written as an empty cell.
func FactSalesTable(rows []SalesFact) *Table {
	t := NewTable("FactSales", FactSalesColumns...)
	for _, r := range rows {
		key := ""
		if r.ProductKey != nil {
			key = strconv.Itoa(*r.ProductKey)
		}
		t.Append(strconv.Itoa(r.DateKey), key, strconv.Itoa(r.Quantity))
	}
	return t
}
