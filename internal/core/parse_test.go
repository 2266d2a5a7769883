package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeCSV writes content to name inside a temp dir and returns the path.
func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// writeXLSX builds a workbook with one sheet per entry; empty strings are
// left as empty cells.
func writeXLSX(t *testing.T, sheets map[string][][]string, order ...string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			for c, v := range row {
				if v == "" {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellStr(name, cell, v); err != nil {
					t.Fatalf("set cell: %v", err)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	return path
}

func cellValues(row Row) []string {
	out := make([]string, len(row))
	for i, c := range row {
		if c.Null {
			out[i] = "<null>"
			continue
		}
		out[i] = c.Value
	}
	return out
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		trim        bool
		wantColumns []string
		wantRows    [][]string
		wantErr     error
	}{
		{
			name:        "simple",
			input:       "id,name\n1,Ann\n2,Bob\n",
			wantColumns: []string{"id", "name"},
			wantRows:    [][]string{{"1", "Ann"}, {"2", "Bob"}},
		},
		{
			name:        "empty fields are null",
			input:       "id,name\n1,\n",
			wantColumns: []string{"id", "name"},
			wantRows:    [][]string{{"1", "<null>"}},
		},
		{
			name:        "short rows padded and long rows cut",
			input:       "a,b,c\n1\n1,2,3,4\n",
			wantColumns: []string{"a", "b", "c"},
			wantRows:    [][]string{{"1", "<null>", "<null>"}, {"1", "2", "3"}},
		},
		{
			name:        "blank lines skipped",
			input:       "\n\na,b\n\n1,2\n\n3,4\n",
			wantColumns: []string{"a", "b"},
			wantRows:    [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:        "line of empty fields is a null row",
			input:       "a,b\n1,2\n,\n3,4\n",
			wantColumns: []string{"a", "b"},
			wantRows:    [][]string{{"1", "2"}, {"<null>", "<null>"}, {"3", "4"}},
		},
		{
			name:        "untrimmed keeps whitespace",
			input:       " a , b \n 1 , x \n",
			wantColumns: []string{" a ", " b "},
			wantRows:    [][]string{{" 1 ", " x "}},
		},
		{
			name:        "trim strips headers and cells",
			input:       " a , b \n 1 ,   \n",
			trim:        true,
			wantColumns: []string{"a", "b"},
			wantRows:    [][]string{{"1", ""}},
		},
		{
			name:        "blank and duplicate headers",
			input:       "a,,a,a\n1,2,3,4\n",
			wantColumns: []string{"a", "Unnamed: 1", "a.1", "a.2"},
			wantRows:    [][]string{{"1", "2", "3", "4"}},
		},
		{
			name:        "BOM stripped from first header",
			input:       "\xEF\xBB\xBFid,name\n1,Ann\n",
			wantColumns: []string{"id", "name"},
			wantRows:    [][]string{{"1", "Ann"}},
		},
		{
			name:        "quoted field with comma and quote",
			input:       "name\n\"O'Brien, \"\"Pat\"\"\"\n",
			wantColumns: []string{"name"},
			wantRows:    [][]string{{`O'Brien, "Pat"`}},
		},
		{
			name:        "header only",
			input:       "a,b\n",
			wantColumns: []string{"a", "b"},
			wantRows:    [][]string{},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input), tt.trim)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Columns, tt.wantColumns) {
				t.Errorf("columns = %q, want %q", got.Columns, tt.wantColumns)
			}
			rows := make([][]string, len(got.Rows))
			for i, r := range got.Rows {
				rows[i] = cellValues(r)
			}
			if !reflect.DeepEqual(rows, tt.wantRows) {
				t.Errorf("rows = %q, want %q", rows, tt.wantRows)
			}
		})
	}
}

func TestMakeColumnNames_NoCollisions(t *testing.T) {
	got := makeColumnNames([]string{"a.1", "a", "a", ""}, false)
	want := []string{"a.1", "a", "a.2", "Unnamed: 3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("makeColumnNames = %q, want %q", got, want)
	}
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	for _, name := range []string{"legacy.xls", "notes.txt", "noext"} {
		t.Run(name, func(t *testing.T) {
			path := writeCSV(t, name, "a\n1\n")
			_, err := ParseFile(path, ParseOptions{})
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
			}
			if !strings.Contains(err.Error(), "unsupported format") {
				t.Errorf("message %q should mention unsupported format", err)
			}
		})
	}
}

func TestParseFile_ExtensionCaseInsensitive(t *testing.T) {
	path := writeCSV(t, "DATA.CSV", "a\n1\n")
	tbl, err := ParseFile(path, ParseOptions{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(tbl.Rows))
	}
}

func TestParseFile_Spreadsheet(t *testing.T) {
	path := writeXLSX(t, map[string][][]string{
		"People": {{"id", "name"}, {"1", "Ann"}},
		"Orders": {{"order", "total"}, {"A-1", "9.5"}, {"A-2", "3"}},
	}, "People", "Orders")

	t.Run("first sheet by default", func(t *testing.T) {
		tbl, err := ParseFile(path, ParseOptions{})
		if err != nil {
			t.Fatalf("ParseFile: %v", err)
		}
		if !reflect.DeepEqual(tbl.Columns, []string{"id", "name"}) {
			t.Errorf("columns = %q", tbl.Columns)
		}
	})

	t.Run("named sheet", func(t *testing.T) {
		tbl, err := ParseFile(path, ParseOptions{Sheet: "Orders"})
		if err != nil {
			t.Fatalf("ParseFile: %v", err)
		}
		if len(tbl.Rows) != 2 {
			t.Errorf("rows = %d, want 2", len(tbl.Rows))
		}
	})

	t.Run("unknown sheet", func(t *testing.T) {
		_, err := ParseFile(path, ParseOptions{Sheet: "Missing"})
		if !errors.Is(err, ErrSheetNotFound) {
			t.Fatalf("err = %v, want ErrSheetNotFound", err)
		}
	})
}

func TestSheetNames(t *testing.T) {
	xlsx := writeXLSX(t, map[string][][]string{
		"B": {{"x"}},
		"A": {{"y"}},
	}, "B", "A")

	got, err := SheetNames(xlsx)
	if err != nil {
		t.Fatalf("SheetNames: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Errorf("SheetNames = %q, want workbook order [B A]", got)
	}

	csvPath := writeCSV(t, "data.csv", "a\n1\n")
	got, err = SheetNames(csvPath)
	if err != nil {
		t.Fatalf("SheetNames(csv): %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("SheetNames(csv) = %#v, want empty slice", got)
	}

	if _, err := SheetNames(writeCSV(t, "old.xls", "")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("SheetNames(xls) err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseFile_CSVAndXLSXAgree(t *testing.T) {
	records := [][]string{
		{"id", "name", "joined", "score", "note"},
		{"1", "Ann", "2024-01-15", "9.5", ""},
		{"2", "O'Brien", "2024-02-01", "7", "late"},
		{"3", "", "2024-03-10", "8.25", ""},
	}

	var b strings.Builder
	for _, r := range records {
		b.WriteString(strings.Join(r, ","))
		b.WriteByte('\n')
	}
	csvPath := writeCSV(t, "data.csv", b.String())
	xlsxPath := writeXLSX(t, map[string][][]string{"Data": records}, "Data")

	fromCSV, err := ParseFile(csvPath, ParseOptions{Trim: true})
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	fromXLSX, err := ParseFile(xlsxPath, ParseOptions{Trim: true})
	if err != nil {
		t.Fatalf("parse xlsx: %v", err)
	}

	if !reflect.DeepEqual(fromCSV.Columns, fromXLSX.Columns) {
		t.Errorf("columns differ: csv %q, xlsx %q", fromCSV.Columns, fromXLSX.Columns)
	}
	if !reflect.DeepEqual(fromCSV.Rows, fromXLSX.Rows) {
		t.Errorf("rows differ:\ncsv  %v\nxlsx %v", fromCSV.Rows, fromXLSX.Rows)
	}
	if !reflect.DeepEqual(InferColumnTypes(fromCSV), InferColumnTypes(fromXLSX)) {
		t.Errorf("types differ: csv %v, xlsx %v", InferColumnTypes(fromCSV), InferColumnTypes(fromXLSX))
	}

	want := ColumnTypeMap{"id": TypeInt, "name": TypeString, "joined": TypeDate, "score": TypeFloat, "note": TypeString}
	if got := InferColumnTypes(fromCSV); !reflect.DeepEqual(got, want) {
		t.Errorf("types = %v, want %v", got, want)
	}
}
