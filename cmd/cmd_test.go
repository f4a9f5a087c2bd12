package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile, verbose, logFormat = "config.yaml", false, ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := `paths:
  raw_inventory: ` + filepath.Join(dir, "Inventory_raw.csv") + `
  raw_sales: ` + filepath.Join(dir, "Sales_raw.csv") + `
  clean_inventory: ` + filepath.Join(dir, "clean", "Inventory_clean.csv") + `
  clean_sales: ` + filepath.Join(dir, "clean", "Sales_clean.csv") + `
  dim_product: ` + filepath.Join(dir, "model", "DimProduct.csv") + `
  fact_sales: ` + filepath.Join(dir, "model", "FactSales.csv") + `
  report_dir: ` + filepath.Join(dir, "reports") + `
model:
  fact_join: left
`
	path := filepath.Join(dir, "retail.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Inventory_raw.csv"),
		[]byte("SKU Code,Design No.,Category,Stock,Size,Color\nSKU001,D1,BR1:Shirts,-5,M,Red\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sales_raw.csv"),
		[]byte("SKU Code,Quantity,Date\nSKU001,10,2024-03-05\nSKU999,1,2024-03-05\n"), 0644))

	out, err := executeCommand(t, "run", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Retail Star Schema Pipeline: run ===")
	assert.Contains(t, out, "dropped 1 (unknown_sku)")

	fact, err := os.ReadFile(filepath.Join(dir, "model", "FactSales.csv"))
	require.NoError(t, err)
	assert.Equal(t, "DateKey,ProductKey,Quantity\n20240305,1,10\n", string(fact))
}

func TestVerboseListsIssues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Inventory_raw.csv"),
		[]byte("SKU Code,Design No.,Category,Stock,Size,Color\nSKU001,D1,BR1:Shirts,3,M,Red\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sales_raw.csv"),
		[]byte("SKU Code,Quantity,Date\nSKU001,10,2024-03-05\nSKU999,1,2024-03-05\n"), 0644))

	out, err := executeCommand(t, "clean-all", "--config", cfgPath, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "issue(s):")
	assert.Contains(t, out, "unknown_sku")

	verbose = false
	out, err = executeCommand(t, "clean-all", "--config", cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, out, "issue(s):")
}

func TestCleanSalesWithoutInventoryFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := executeCommand(t, "clean-sales", "--config", cfgPath)
	assert.ErrorContains(t, err, "clean inventory")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    "+Version)
}
