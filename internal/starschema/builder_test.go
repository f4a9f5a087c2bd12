package starschema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/retail-star-schema/internal/cleaner"
	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildDimProduct_DenseKeys(t *testing.T) {
	inventory := []types.InventoryRecord{
		{SKU: "C-3", DesignNumber: "D3", BrandCode: "B", CategoryName: "Shirts"},
		{SKU: "A-1", DesignNumber: "D1", Size: "M", Color: "Red", BrandCode: "B", CategoryName: "Pants"},
		{SKU: "B-2", DesignNumber: "D2", BrandCode: "B", CategoryName: "Hats", Stock: 4},
	}

	dim := BuildDimProduct(inventory)
	require.Len(t, dim, len(inventory))

	for i, p := range dim {
		assert.Equal(t, i+1, p.ProductKey)
		assert.Equal(t, inventory[i].SKU, p.SKU)
	}
	assert.Equal(t, types.ProductDim{
		ProductKey: 2, SKU: "A-1", DesignNumber: "D1", Size: "M", Color: "Red", BrandCode: "B", CategoryName: "Pants",
	}, dim[1])
}

func TestBuildDimProduct_Empty(t *testing.T) {
	assert.Empty(t, BuildDimProduct(nil))
}

func TestDateKey(t *testing.T) {
	assert.Equal(t, 20240305, DateKey(date(2024, time.March, 5)))
	assert.Equal(t, 19991231, DateKey(date(1999, time.December, 31)))
	assert.Equal(t, 20240101, DateKey(time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)))
}

func TestBuildFactSales_ResolvesProductKey(t *testing.T) {
	dim := []types.ProductDim{{ProductKey: 7, SKU: "SKU001"}}
	sales := []types.SalesRecord{{SKU: "SKU001", Quantity: 10, Date: date(2024, time.March, 5)}}

	res, err := NewBuilder(config.ModelConfig{FactJoin: config.JoinInner}, nil).BuildFactSales(sales, dim)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	got := res.Rows[0]
	require.NotNil(t, got.ProductKey)
	assert.Equal(t, 20240305, got.DateKey)
	assert.Equal(t, 7, *got.ProductKey)
	assert.Equal(t, 10, got.Quantity)
	assert.True(t, res.Report.Passed())
	assert.Empty(t, res.Report.Issues())
}

func TestBuildFactSales_JoinPolicies(t *testing.T) {
	dim := BuildDimProduct([]types.InventoryRecord{{SKU: "A-1"}, {SKU: "B-2"}})
	sales := []types.SalesRecord{
		{SKU: "B-2", Quantity: 1, Date: date(2024, time.January, 2)},
		{SKU: "Z-9", Quantity: 2, Date: date(2024, time.January, 3)},
		{SKU: "A-1", Quantity: 3, Date: date(2024, time.January, 4)},
	}

	t.Run("inner", func(t *testing.T) {
		res, err := NewBuilder(config.ModelConfig{FactJoin: config.JoinInner}, nil).BuildFactSales(sales, dim)
		require.NoError(t, err)
		require.Len(t, res.Rows, 2)

		assert.Equal(t, 2, *res.Rows[0].ProductKey)
		assert.Equal(t, 1, *res.Rows[1].ProductKey)
		assert.Equal(t, 1, res.Stats.Unmatched)

		issue, ok := res.Report.Find("unmatched_product")
		require.True(t, ok)
		assert.Equal(t, []string{"Z-9"}, issue.Samples)
	})

	t.Run("left", func(t *testing.T) {
		res, err := NewBuilder(config.ModelConfig{FactJoin: config.JoinLeft}, nil).BuildFactSales(sales, dim)
		require.NoError(t, err)
		require.Len(t, res.Rows, 3)

		assert.Nil(t, res.Rows[1].ProductKey)
		assert.Equal(t, 20240103, res.Rows[1].DateKey)
		assert.Equal(t, 1, res.Stats.Unmatched)
		assert.Equal(t, 3, res.Stats.RowsWritten)

		table := types.FactSalesTable(res.Rows)
		assert.Equal(t, []string{"20240103", "", "2"}, table.Rows[1])
	})
}

func TestBuildFactSales_DuplicateDimensionSKU(t *testing.T) {
	dim := []types.ProductDim{{ProductKey: 1, SKU: "A-1"}, {ProductKey: 2, SKU: "A-1"}}

	_, err := NewBuilder(config.ModelConfig{FactJoin: config.JoinInner}, nil).BuildFactSales(nil, dim)
	assert.Error(t, err)
}

func TestBuildFactSales_DateKeysHaveEightDigits(t *testing.T) {
	raw := types.NewTable("Sales_raw", types.ColSKU, types.ColQuantity, types.ColDate)
	raw.Append("SKU001", "1", "0999-01-01")
	raw.Append("SKU001", "2", "0001-01-01")
	raw.Append("SKU001", "3", "1000-01-01")
	raw.Append("SKU001", "4", "2024-3-5")
	raw.Append("SKU001", "5", "9999-12-31")

	inventory := []types.InventoryRecord{{SKU: "SKU001", DesignNumber: "D1", BrandCode: "B", CategoryName: "C"}}
	now := func() time.Time { return date(2024, time.June, 1) }
	sales, err := cleaner.NewSalesCleaner(config.SalesConfig{}, nil, now).Clean(raw, inventory)
	require.NoError(t, err)
	assert.Equal(t, 2, sales.Stats.InvalidDates)

	res, err := NewBuilder(config.ModelConfig{FactJoin: config.JoinInner}, nil).
		BuildFactSales(sales.Records, BuildDimProduct(inventory))
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	for _, f := range res.Rows {
		assert.GreaterOrEqual(t, f.DateKey, 10000101)
		assert.LessOrEqual(t, f.DateKey, 99991231)
	}
	_, flagged := res.Report.Find("date_key_format")
	assert.False(t, flagged)
}

func TestBuildFactSales_FlagsShortDateKey(t *testing.T) {
	dim := []types.ProductDim{{ProductKey: 1, SKU: "SKU001"}}
	sales := []types.SalesRecord{{SKU: "SKU001", Quantity: 1, Date: date(999, time.January, 1)}}

	res, err := NewBuilder(config.ModelConfig{FactJoin: config.JoinInner}, nil).BuildFactSales(sales, dim)
	require.NoError(t, err)
	assert.False(t, res.Report.Passed())

	issue, ok := res.Report.Find("date_key_format")
	require.True(t, ok)
	assert.Equal(t, []string{"9990101"}, issue.Samples)
}
