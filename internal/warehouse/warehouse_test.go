package warehouse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

func openTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open(filepath.Join(t.TempDir(), "db", "retail.db"), 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func intPtr(v int) *int { return &v }

func TestLoad_FullRefresh(t *testing.T) {
	ctx := context.Background()
	w := openTestWarehouse(t)

	dim := []types.ProductDim{
		{ProductKey: 1, SKU: "A-1", BrandCode: "BR1", CategoryName: "Shirts"},
		{ProductKey: 2, SKU: "B-2", BrandCode: "BR2", CategoryName: "Pants"},
		{ProductKey: 3, SKU: "C-3", BrandCode: "BR2", CategoryName: "Hats"},
	}
	facts := []types.SalesFact{
		{DateKey: 20240305, ProductKey: intPtr(1), Quantity: 10},
		{DateKey: 20240306, ProductKey: intPtr(3), Quantity: 2},
		{DateKey: 20240307, ProductKey: nil, Quantity: 4},
	}

	stats, err := w.Load(ctx, dim, facts)
	require.NoError(t, err)
	assert.Equal(t, LoadStats{Products: 3, Facts: 3}, stats)

	// A second load replaces the first.
	_, err = w.Load(ctx, dim[:1], facts[:1])
	require.NoError(t, err)

	products, sales, err := w.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), products)
	assert.Equal(t, int64(1), sales)
}

func TestLoad_NullProductKey(t *testing.T) {
	ctx := context.Background()
	w := openTestWarehouse(t)

	_, err := w.Load(ctx, nil, []types.SalesFact{{DateKey: 20240101, Quantity: 1}})
	require.NoError(t, err)

	var row FactSalesRow
	require.NoError(t, w.db.First(&row).Error)
	assert.Nil(t, row.ProductKey)
	assert.Equal(t, 20240101, row.DateKey)
}

func TestLoad_DuplicateProductRollsBack(t *testing.T) {
	ctx := context.Background()
	w := openTestWarehouse(t)

	_, err := w.Load(ctx, []types.ProductDim{{ProductKey: 1, SKU: "A-1"}}, nil)
	require.NoError(t, err)

	_, err = w.Load(ctx, []types.ProductDim{{ProductKey: 1, SKU: "X-1"}, {ProductKey: 2, SKU: "X-1"}}, nil)
	require.Error(t, err)

	var kept []DimProductRow
	require.NoError(t, w.db.Find(&kept).Error)
	require.Len(t, kept, 1)
	assert.Equal(t, "A-1", kept[0].SKU)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", 0, nil)
	assert.Error(t, err)
}
