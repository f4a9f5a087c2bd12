package tableio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

func defaultSettings() config.CSVSettings {
	return config.Default().CSV
}

func TestLoad_CSVKeepsBlankRowsAndTrimsHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Inventory_raw.csv")
	content := " SKU Code ,Design No.,Category\nSKU-1,D1,BR1:Shirts\n,,\nSKU-2,D2,BR2:Pants\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := Load(path, defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, "Inventory_raw", table.Name)
	assert.Equal(t, []string{"SKU Code", "Design No.", "Category"}, table.Headers)
	require.Equal(t, 3, table.Len())
	assert.True(t, types.IsRowEmpty(table.Rows[1]))
	assert.Equal(t, "BR2:Pants", table.Cell(table.Rows[2], "Category"))
}

func TestLoad_StripsUTF8BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFSKU Code,Quantity,Date\nA-1,2,2024-01-01\n"), 0o644))

	table, err := Load(path, defaultSettings())
	require.NoError(t, err)
	assert.True(t, table.HasColumn("SKU Code"))
}

func TestLoad_DecodesWindows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("SKU Code,Color\nA-1,Crème\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "inv.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	settings := defaultSettings()
	settings.Encoding = "Windows-1252"

	table, err := Load(path, settings)
	require.NoError(t, err)
	assert.Equal(t, "Crème", table.Cell(table.Rows[0], "Color"))
}

func TestLoad_Delimiters(t *testing.T) {
	tests := []struct {
		name      string
		delimiter string
		content   string
	}{
		{"semicolon", "semicolon", "SKU Code;Quantity\nA-1;3\n"},
		{"pipe", "|", "SKU Code|Quantity\nA-1|3\n"},
		{"tab", "tab", "SKU Code\tQuantity\nA-1\t3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := readCSV(strings.NewReader(tt.content), config.CSVSettings{Delimiter: tt.delimiter})
			require.NoError(t, err)
			assert.Equal(t, "3", table.Cell(table.Rows[0], "Quantity"))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.csv"), defaultSettings())
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "table.json"), defaultSettings())
	assert.ErrorContains(t, err, "unsupported table format")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Load(empty, defaultSettings())
	assert.ErrorContains(t, err, "empty")
}

func TestSave_CSVRoundTripAndPadding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	table := types.NewTable("out", "A", "B", "C")
	table.Append("1", "x, y")
	table.Append("2", "z", "w")

	require.NoError(t, Save(table, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A,B,C\n1,\"x, y\",\n2,z,w\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not remain")
}

func TestSave_FailedWriteLeavesExistingFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	err := writeAtomic(path, func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return errors.New("disk full")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveAll_FailedWriteLeavesEveryTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	dimPath := filepath.Join(dir, "DimProduct.csv")
	require.NoError(t, os.WriteFile(dimPath, []byte("previous"), 0o644))

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	factPath := filepath.Join(blocker, "FactSales.csv")

	dim := types.NewTable("DimProduct", "ProductKey")
	dim.Append("1")
	fact := types.NewTable("FactSales", "DateKey")
	fact.Append("20240305")

	err := SaveAll(Output{Table: dim, Path: dimPath}, Output{Table: fact, Path: factPath})
	require.Error(t, err)
	assert.ErrorContains(t, err, factPath)

	data, err := os.ReadFile(dimPath)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary file must not remain")
}

func TestSaveAll_WritesEveryTable(t *testing.T) {
	dir := t.TempDir()
	a := types.NewTable("a", "X")
	a.Append("1")
	b := types.NewTable("b", "Y")
	b.Append("2")

	require.NoError(t, SaveAll(
		Output{Table: a, Path: filepath.Join(dir, "a.csv")},
		Output{Table: b, Path: filepath.Join(dir, "model", "b.csv")},
	))

	data, err := os.ReadFile(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "X\n1\n", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "model", "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Y\n2\n", string(data))
}

func TestSave_XLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Sales_raw.xlsx")

	table := types.NewTable("Sales_raw", "SKU Code", "Quantity", "Date")
	table.Append("A-1", "4", "2024-03-05")
	table.Append("B-2", "1", "2024-03-06")

	require.NoError(t, Save(table, path))

	loaded, err := Load(path, defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, table.Headers, loaded.Headers)
	assert.Equal(t, table.Rows, loaded.Rows)
}

func TestSaveWorkbook_OneSheetPerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.xlsx")

	dim := types.NewTable("DimProduct", "ProductKey", "SKU Code")
	dim.Append("1", "A-1")
	fact := types.NewTable("FactSales", "DateKey", "ProductKey", "Quantity")
	fact.Append("20240305", "1", "4")

	require.NoError(t, SaveWorkbook(path, dim, fact))

	settings := defaultSettings()
	settings.Sheet = "FactSales"
	loaded, err := Load(path, settings)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"20240305", "1", "4"}}, loaded.Rows)

	assert.Error(t, SaveWorkbook(filepath.Join(t.TempDir(), "model.csv"), dim))
}

func TestWriteCSV_Deterministic(t *testing.T) {
	table := types.NewTable("t", "A")
	table.Append("1")

	var a, b bytes.Buffer
	require.NoError(t, writeCSV(&a, table))
	require.NoError(t, writeCSV(&b, table))
	assert.Equal(t, a.Bytes(), b.Bytes())
}
