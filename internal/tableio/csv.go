package tableio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/retail-star-schema/internal/config"
	"github.com/ginjaninja78/retail-star-schema/internal/types"
)

// loadCSV reads a delimiter-separated file. The first record is the header
// row; every following record is kept as-is, including blank rows, so the
// cleaners can account for what they drop.
func loadCSV(path string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return readCSV(file, settings)
}

// readCSV parses CSV content from r.
func readCSV(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	dec, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(bufio.NewReader(r), dec))
	configureReader(reader, settings)

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	table := types.NewTable("", cleanHeaders(allRows[0])...)
	table.Rows = allRows[1:]
	return table, nil
}

// writeCSV writes the table as comma-separated UTF-8 text.
func writeCSV(w io.Writer, table *types.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(table.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad short rows so every record has the header's width.
	width := len(table.Headers)
	for i, row := range table.Rows {
		record := row
		if len(row) < width {
			record = make([]string, width)
			copy(record, row)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Extracts from the POS export are ragged and loosely quoted.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// decoderFor returns the decoder for a configured encoding. UTF-8 input has
// its byte order mark stripped.
func decoderFor(name string) (transform.Transformer, error) {
	var enc encoding.Encoding

	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "ISO-8859-1", "LATIN1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}

	return enc.NewDecoder(), nil
}
