package core

// parse.go loads CSV and spreadsheet files into a Table.
//
// The first row of the file (or selected sheet) is the header. Headers are
// made unique and non-empty so every column can be addressed by name. Data
// rows are padded with nulls (or truncated) to the header width, which keeps
// Table's invariant that every row has len(Columns) cells.

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseOptions controls how a file is loaded.
type ParseOptions struct {
	Sheet string // Spreadsheet tab; empty selects the first sheet. Ignored for CSV.
	Trim  bool   // Strip surrounding whitespace from headers and cells.
}

// FileKind identifies a supported input format.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindCSV
	KindSpreadsheet
)

// DetectKind returns the input format implied by the file extension.
func DetectKind(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return KindCSV
	case ".xlsx", ".xlsm":
		return KindSpreadsheet
	default:
		return KindUnsupported
	}
}

// ParseFile loads path into a Table.
func ParseFile(path string, opts ParseOptions) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch DetectKind(path) {
	case KindCSV:
		records, err = readCSVFile(path)
	case KindSpreadsheet:
		records, err = readSheet(path, opts.Sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	t, err := buildTable(records, opts.Trim)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		slog.Debug("parsed table has no data rows", "path", filepath.Base(path))
	}
	return t, nil
}

// ParseCSV loads CSV data from r into a Table.
func ParseCSV(r io.Reader, trim bool) (*Table, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return buildTable(records, trim)
}

// SheetNames lists the tabs of a spreadsheet in workbook order.
// CSV files have no sheets and return an empty slice.
func SheetNames(path string) ([]string, error) {
	switch DetectKind(path) {
	case KindCSV:
		return []string{}, nil
	case KindSpreadsheet:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(cleanCSVReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return records, nil
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// buildTable turns raw records into a Table. Empty strings become nulls.
func buildTable(records [][]string, trim bool) (*Table, error) {
	for len(records) > 0 && isBlankLine(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	columns := makeColumnNames(records[0], trim)
	width := len(columns)

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		// A line of empty fields such as "," is a row of nulls.
		if isBlankLine(rec) {
			continue
		}
		row := make(Row, width)
		for i := range row {
			if i >= len(rec) || rec[i] == "" {
				row[i] = NullCell()
				continue
			}
			v := rec[i]
			if trim {
				v = strings.TrimSpace(v)
			}
			row[i] = StringCell(v)
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// makeColumnNames fills blank headers with "Unnamed: <i>" and suffixes
// repeats with ".<n>" so that every column name is unique.
func makeColumnNames(header []string, trim bool) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, h := range header {
		if trim {
			h = strings.TrimSpace(h)
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for used[name] {
			next[h]++
			name = h + "." + strconv.Itoa(next[h])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// isBlankLine reports whether rec carries no fields at all. Sheets report
// blank rows as zero-length records.
func isBlankLine(rec []string) bool {
	return len(rec) == 0 || (len(rec) == 1 && rec[0] == "")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
