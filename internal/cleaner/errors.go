package cleaner

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns missing from an input table. It is
// the only fatal condition of the cleaning rules themselves.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: missing required columns %s",
		e.Table, strings.Join(e.Missing, ", "))
}

// DuplicateKeyError is returned when the inventory contains duplicate SKU
// codes and the duplicate policy is "reject".
type DuplicateKeyError struct {
	SKUs []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate SKU codes in inventory: %s", strings.Join(e.SKUs, ", "))
}
