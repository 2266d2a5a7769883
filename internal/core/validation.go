package core

// validation.go checks a parsed table before it is exported.
//
// Three independent checks each produce a per-row error map:
//  1. Required: null or blank values in the required columns
//  2. Types: values that do not fit the column's inferred type
//  3. Duplicates: every row that shares its unique-column key with another row
//
// The maps are merged in that order, so a later check overwrites an earlier
// message for the same column. The result is aligned with the table: one
// RowErrors per row, empty when the row is clean.

import (
	"fmt"
	"strconv"
	"strings"
)

// Validation messages shown next to the offending cell.
const (
	MsgRequired       = "Required field is missing."
	MsgExpectedNumber = "Expected number."
	MsgExpectedDate   = "Expected date."
	MsgDuplicate      = "Duplicate value."
)

// ValidationResult is the table together with its error report, ready for
// rendering.
type ValidationResult struct {
	Columns []string      `json:"columns"`
	Rows    []Row         `json:"-"`
	Types   ColumnTypeMap `json:"columnTypes"`
	Errors  ErrorReport   `json:"errors"`
}

// Records returns the validated rows keyed by column.
func (r *ValidationResult) Records() []Record {
	return (&Table{Columns: r.Columns, Rows: r.Rows}).Records()
}

// Validate runs the required, type and duplicate checks over t.
// Every name in required and unique must be a column of t.
func Validate(t *Table, required, unique []string) (*ValidationResult, error) {
	if err := checkColumns(t, required); err != nil {
		return nil, err
	}
	if err := checkColumns(t, unique); err != nil {
		return nil, err
	}

	types := InferColumnTypes(t)

	report := MergeRowErrors(len(t.Rows),
		ValidateRequired(t, required),
		ValidateTypes(t, types),
		ValidateDuplicates(t, unique),
	)

	return &ValidationResult{
		Columns: t.Columns,
		Rows:    t.Rows,
		Types:   types,
		Errors:  report,
	}, nil
}

// ValidateRequired flags null or blank values in the required columns.
// The result is keyed by row index and only holds rows with errors.
func ValidateRequired(t *Table, required []string) map[int]RowErrors {
	out := make(map[int]RowErrors)
	idx := columnPositions(t, required)
	for i, row := range t.Rows {
		for j, col := range required {
			pos := idx[j]
			if pos < 0 || row[pos].IsBlank() {
				addError(out, i, col, MsgRequired)
			}
		}
	}
	return out
}

// ValidateTypes flags values that do not conform to the inferred type of
// numeric and date columns. String and unknown columns are never flagged.
func ValidateTypes(t *Table, types ColumnTypeMap) map[int]RowErrors {
	out := make(map[int]RowErrors)
	for pos, col := range t.Columns {
		colType := types[col]
		if !colType.IsNumeric() && colType != TypeDate {
			continue
		}
		for i, row := range t.Rows {
			c := row[pos]
			if c.IsBlank() {
				continue
			}
			switch {
			case colType.IsNumeric() && !IsNumber(c.Value):
				addError(out, i, col, MsgExpectedNumber)
			case colType == TypeDate && !IsDate(c.Value):
				addError(out, i, col, MsgExpectedDate)
			}
		}
	}
	return out
}

// ValidateDuplicates flags every row that takes part in a duplicate group
// over the unique columns, including the first occurrence. Nulls compare
// equal to each other.
func ValidateDuplicates(t *Table, unique []string) map[int]RowErrors {
	out := make(map[int]RowErrors)
	if len(unique) == 0 {
		return out
	}

	idx := columnPositions(t, unique)
	groups := make(map[string][]int)
	keys := make([]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		key := rowKey(row, idx)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range keys {
		rows := groups[key]
		if len(rows) < 2 {
			continue
		}
		for _, i := range rows {
			for _, col := range unique {
				addError(out, i, col, MsgDuplicate)
			}
		}
	}
	return out
}

// MergeRowErrors combines per-row error maps into a report with one entry
// per row. Maps are applied in argument order; later messages win.
func MergeRowErrors(rowCount int, sets ...map[int]RowErrors) ErrorReport {
	report := make(ErrorReport, rowCount)
	for i := range report {
		report[i] = RowErrors{}
	}
	for _, set := range sets {
		for i, errs := range set {
			if i < 0 || i >= rowCount {
				continue
			}
			for col, msg := range errs {
				report[i][col] = msg
			}
		}
	}
	return report
}

func checkColumns(t *Table, names []string) error {
	var missing []string
	for _, name := range names {
		if t.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func columnPositions(t *Table, names []string) []int {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.ColumnIndex(name)
	}
	return idx
}

// rowKey builds a composite key. Each value is length-prefixed and nulls use
// a token no prefixed value can produce, so distinct tuples never collide.
func rowKey(row Row, idx []int) string {
	var b strings.Builder
	for _, pos := range idx {
		if pos < 0 || row[pos].Null {
			b.WriteString("-;")
			continue
		}
		v := row[pos].Value
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

func addError(out map[int]RowErrors, row int, col, msg string) {
	errs, ok := out[row]
	if !ok {
		errs = RowErrors{}
		out[row] = errs
	}
	errs[col] = msg
}
