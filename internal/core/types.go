// Package core provides the business logic for spreadsheet conversion.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"errors"
	"strings"
	"time"
)

// Sentinel errors. Callers wrap these with context and test with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrUnsupportedOutput = errors.New("unsupported output format")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrEmptyFile         = errors.New("empty file")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrFileNotFound      = errors.New("file not found")
)

// ColumnType is the inferred type tag of a column.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInt     ColumnType = "int"
	TypeFloat   ColumnType = "float"
	TypeDate    ColumnType = "date"
	TypeUnknown ColumnType = "unknown"
)

// IsNumeric reports whether values of this type are rendered as numbers.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// ColumnTypeMap maps a column name to its inferred type.
type ColumnTypeMap map[string]ColumnType

// Cell is a single table value. Null marks a missing value; an empty
// non-null cell is a blank string.
type Cell struct {
	Value string
	Null  bool
}

// NullCell returns a missing value.
func NullCell() Cell { return Cell{Null: true} }

// StringCell returns a present value.
func StringCell(s string) Cell { return Cell{Value: s} }

// IsBlank reports whether the cell is null or contains only whitespace.
func (c Cell) IsBlank() bool {
	return c.Null || strings.TrimSpace(c.Value) == ""
}

// Row is an ordered record aligned with Table.Columns.
type Row []Cell

// Table is an in-memory sheet: named, ordered columns and ordered rows.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    []Row
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Head returns a table view holding at most n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Records returns the rows paired with their column names.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = Record{Columns: t.Columns, Cells: row}
	}
	return out
}

// Record is one row keyed by column name. It marshals as a JSON object with
// keys in column order and null cells as null.
type Record struct {
	Columns []string
	Cells   Row
}

// Get returns the cell for a column.
func (r Record) Get(column string) (Cell, bool) {
	for i, c := range r.Columns {
		if c == column && i < len(r.Cells) {
			return r.Cells[i], true
		}
	}
	return Cell{}, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	values := make([]any, len(r.Columns))
	for i := range r.Columns {
		if i < len(r.Cells) && !r.Cells[i].Null {
			values[i] = r.Cells[i].Value
		}
	}
	return jsonRow{columns: r.Columns, values: values}.MarshalJSON()
}

// RowErrors maps a column name to an error message for one row.
type RowErrors map[string]string

// ErrorReport holds one RowErrors per table row, in row order.
type ErrorReport []RowErrors

// ErrorRows returns the number of rows with at least one error.
func (r ErrorReport) ErrorRows() int {
	n := 0
	for _, e := range r {
		if len(e) > 0 {
			n++
		}
	}
	return n
}

// UploadedFile is the persisted record of an uploaded spreadsheet.
type UploadedFile struct {
	ID           int64     `json:"id"`
	FilePath     string    `json:"filePath"`
	OriginalName string    `json:"originalName"`
	SheetName    string    `json:"sheetName,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
