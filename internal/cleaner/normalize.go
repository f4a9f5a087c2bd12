package cleaner

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// NormalizeSKU is the single SKU normalization shared by the inventory and
// sales cleaners. Referential matching between the two stages depends on
// both applying exactly this function.
func NormalizeSKU(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// countOutcome describes how a raw count cell was coerced.
type countOutcome int

const (
	countOK countOutcome = iota
	countMissing
	countInvalid
	countNegative
)

// coerceCount converts a raw Stock or Quantity cell into a non-negative
// integer. Missing and non-numeric values become 0, negative values are
// clamped to 0 and fractional values are truncated toward zero.
func coerceCount(raw string) (int, countOutcome) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, countMissing
	}

	f, ok := parseNumber(raw)
	if !ok {
		return 0, countInvalid
	}
	if f < 0 {
		return 0, countNegative
	}
	return int(math.Trunc(f)), countOK
}

// parseNumber parses a numeric cell. NaN, infinities and values that do not
// fit an int are rejected.
func parseNumber(raw string) (float64, bool) {
	f, err := cast.ToFloat64E(strings.TrimSpace(raw))
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return f, true
}

// Accepted sale date layouts, ISO forms first. Slash, dash and dot forms
// with a four-digit year are read month first.
var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:04",
	"2006-1-2 15:04:05",
	"2006-1-2T15:04:05",
	time.RFC3339,
	"2006/1/2",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
	"2006.1.2",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	"01-02-2006",
	"1.2.2006",
	"01.02.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"20060102",
}

// Parsed years outside this range are rejected so every DateKey has eight
// digits.
const (
	minDateYear = 1000
	maxDateYear = 9999
)

// ParseDate parses a raw sale date and truncates it to the calendar day.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if y := t.Year(); y < minDateYear || y > maxDateYear {
			return time.Time{}, false
		}
		return calendarDay(t), true
	}
	return time.Time{}, false
}

// calendarDay drops the time of day, keeping the date as written.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
