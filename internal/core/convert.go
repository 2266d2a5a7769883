package core

// convert.go classifies raw cell text and infers column types.
//
// Spreadsheet cells arrive as formatted text (CSV fields, excelize GetRows),
// so CSV and XLSX files holding the same data go through exactly the same
// inference. Classification is deliberately strict: no currency cleanup, no
// thousands separators. A value either parses with strconv / a known date
// layout or it is text.

import (
	"strconv"
	"strings"
	"time"
)

// InferenceThreshold is the share of non-blank values that must agree on a
// type before a column is tagged with it.
var InferenceThreshold = 0.8

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006 15:04", "1/2/2006 15:04:05",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006", "02-Jan-2006", "January 2, 2006",
	}
)

// valueClass is the classification of a single non-blank cell.
type valueClass int

const (
	classText valueClass = iota
	classInt
	classFloat
	classDate
	classBool
)

// ParseInt parses a whole number.
func ParseInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}

// ParseFloat parses a decimal number. NaN and infinities are rejected.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nan", "inf", "infinity":
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// IsNumber reports whether s parses as an integer or decimal.
func IsNumber(s string) bool {
	_, ok := ParseFloat(s)
	return ok
}

// ParseDate parses s using the supported date layouts.
// 2-digit years are resolved with TwoDigitYearPivot.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// IsDate reports whether s parses as a date.
func IsDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// isBool accepts the literal spellings spreadsheet tools write for booleans.
func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false":
		return true
	}
	return false
}

func classify(s string) valueClass {
	if _, ok := ParseInt(s); ok {
		return classInt
	}
	if _, ok := ParseFloat(s); ok {
		return classFloat
	}
	if isBool(s) {
		return classBool
	}
	if IsDate(s) {
		return classDate
	}
	return classText
}

// InferColumnTypes returns a best-effort type per column. Blank and null
// values are ignored; a column with no values, only booleans, or no clear
// majority is TypeUnknown.
func InferColumnTypes(t *Table) ColumnTypeMap {
	types := make(ColumnTypeMap, len(t.Columns))
	for i, col := range t.Columns {
		types[col] = inferColumn(t.Rows, i)
	}
	return types
}

func inferColumn(rows []Row, idx int) ColumnType {
	var counts [5]int
	total := 0
	for _, row := range rows {
		c := row[idx]
		if c.IsBlank() {
			continue
		}
		counts[classify(c.Value)]++
		total++
	}
	if total == 0 {
		return TypeUnknown
	}

	share := func(n int) float64 { return float64(n) / float64(total) }

	numeric := counts[classInt] + counts[classFloat]
	switch {
	case share(numeric) >= InferenceThreshold:
		if counts[classFloat] == 0 {
			return TypeInt
		}
		return TypeFloat
	case share(counts[classDate]) >= InferenceThreshold:
		return TypeDate
	case counts[classBool] == total:
		return TypeUnknown
	case share(counts[classText]) >= InferenceThreshold:
		return TypeString
	}
	return TypeUnknown
}
