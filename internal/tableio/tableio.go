// =============================================================================
// Retail Star Schema Pipeline - Table I/O Module
// =============================================================================
//
// This module provides the two storage primitives the pipeline stages are
// built on:
//
//   Load(path) -> table
//   Save(table, path)
//   SaveAll(outputs...)   several tables that must change together
//
// The format is chosen from the file extension:
//   .csv, .txt : delimiter-separated text (csv.go)
//   .xlsx      : Excel workbook, one table per sheet (xlsx.go)
//
// ATOMICITY:
//   Every Save writes to a temporary file next to the target and renames it
//   into place, so a failed stage never leaves a truncated output behind.
//   SaveAll writes every temporary file before the first rename, so a failed
//   write leaves all of its targets untouched.
//
// =============================================================================

package tableio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

// Load reads a table from path. The table is named after the file name
// without its extension.
func Load(path string, settings config.CSVSettings) (*types.Table, error) {
	var (
		table *types.Table
		err   error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		table, err = loadCSV(path, settings)
	case ".xlsx":
		table, err = loadXLSX(path, settings.Sheet)
	default:
		return nil, fmt.Errorf("unsupported table format %q: %s", ext, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	table.Name = tableName(path)
	return table, nil
}

// Save writes a table to path, creating the parent directory if needed.
func Save(table *types.Table, path string) error {
	return SaveAll(Output{Table: table, Path: path})
}

// Output is a table and the path it is saved to.
type Output struct {
	Table *types.Table
	Path  string
}

// SaveAll saves several tables as one unit. Every table is written to a
// temporary file first; the files are moved into place only after all of
// them were written.
func SaveAll(outputs ...Output) error {
	staged := make([]string, 0, len(outputs))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for _, out := range outputs {
		write, err := tableWriter(out.Table, out.Path)
		if err != nil {
			return err
		}
		tmp, err := stageTemp(out.Path, write)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", out.Path, err)
		}
		staged = append(staged, tmp)
	}

	for i, out := range outputs {
		if err := os.Rename(staged[i], out.Path); err != nil {
			return fmt.Errorf("failed to save %s: failed to move output into place: %w", out.Path, err)
		}
	}
	staged = nil
	return nil
}

func tableWriter(table *types.Table, path string) (func(w io.Writer) error, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		return func(w io.Writer) error { return writeCSV(w, table) }, nil
	case ".xlsx":
		return func(w io.Writer) error { return writeXLSX(w, table) }, nil
	default:
		return nil, fmt.Errorf("unsupported table format %q: %s", ext, path)
	}
}

// SaveWorkbook writes several tables into one .xlsx workbook, one sheet per
// table, in the given order.
func SaveWorkbook(path string, tables ...*types.Table) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fmt.Errorf("workbook path must end in .xlsx: %s", path)
	}
	if err := writeAtomic(path, func(w io.Writer) error { return writeXLSX(w, tables...) }); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// writeAtomic streams content into a temporary file in the target directory
// and renames it over path once the write has fully succeeded.
func writeAtomic(path string, write func(w io.Writer) error) error {
	tmpPath, err := stageTemp(path, write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// stageTemp writes content into a temporary file next to path and returns
// its name. On error nothing is left behind.
func stageTemp(path string, write func(w io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	staged := false
	defer func() {
		if !staged {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary file: %w", err)
	}

	staged = true
	return tmpPath, nil
}

// tableName derives a table name from a file path.
func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// cleanHeaders trims header values and names blank headers by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}
