package tableio

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

// loadXLSX reads one sheet of a workbook. An empty sheet name selects the
// first sheet.
func loadXLSX(path, sheet string) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	table := types.NewTable("", cleanHeaders(rows[0])...)
	table.Rows = rows[1:]
	return table, nil
}

// writeXLSX writes each table to its own sheet, named after the table.
func writeXLSX(w io.Writer, tables ...*types.Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)

	for i, table := range tables {
		sheet := table.Name
		if sheet == "" {
			sheet = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, table); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeSheet writes the header row followed by the data rows.
func writeSheet(f *excelize.File, sheet string, table *types.Table) error {
	writeRow := func(rowNum int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(1, table.Headers); err != nil {
		return fmt.Errorf("failed to write header of sheet %q: %w", sheet, err)
	}
	for i, row := range table.Rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %q: %w", i+1, sheet, err)
		}
	}
	return nil
}
