package core

import (
	"testing"
	"time"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   float64
	}{
		{name: "integer", input: "123", wantOK: true, want: 123},
		{name: "negative decimal", input: "-45.5", wantOK: true, want: -45.5},
		{name: "leading decimal point", input: ".99", wantOK: true, want: 0.99},
		{name: "surrounding whitespace", input: "  7 ", wantOK: true, want: 7},
		{name: "exponent", input: "1e3", wantOK: true, want: 1000},
		{name: "currency is text", input: "$1,234.56", wantOK: false},
		{name: "thousands separator is text", input: "1,234", wantOK: false},
		{name: "nan rejected", input: "NaN", wantOK: false},
		{name: "infinity rejected", input: "-Inf", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "word", input: "abc", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFloat(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseFloat(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseFloat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input  string
		wantOK bool
		want   int64
	}{
		{"42", true, 42},
		{"-7", true, -7},
		{" 3 ", true, 3},
		{"3.0", false, 0},
		{"1e3", false, 0},
		{"", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInt(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseInt(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   time.Time
	}{
		{name: "ISO", input: "2024-01-15", wantOK: true, want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "US slash", input: "1/15/2024", wantOK: true, want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "US padded", input: "01/15/2024", wantOK: true, want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "month name", input: "Jan 15, 2024", wantOK: true, want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "day month year", input: "15 Jan 2024", wantOK: true, want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "datetime", input: "2024-01-15 10:30:00", wantOK: true, want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{name: "RFC3339", input: "2024-01-15T10:30:00Z", wantOK: true, want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{name: "invalid month", input: "2024-13-01", wantOK: false},
		{name: "word", input: "yesterday", wantOK: false},
		{name: "number", input: "20240115", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()
	TwoDigitYearPivot = 20

	tests := []struct {
		input    string
		wantYear int
	}{
		{"01/15/25", 2025},
		{"01/15/30", 2030},
		{"01/15/99", 1999},
		{"01/15/85", 1985},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.input)
			}
			if got.Year() != tt.wantYear {
				t.Errorf("ParseDate(%q) year = %d, want %d", tt.input, got.Year(), tt.wantYear)
			}
		})
	}
}

func column(values ...string) *Table {
	rows := make([]Row, len(values))
	for i, v := range values {
		if v == "<null>" {
			rows[i] = Row{NullCell()}
			continue
		}
		rows[i] = Row{StringCell(v)}
	}
	return &Table{Columns: []string{"c"}, Rows: rows}
}

func TestInferColumnTypes(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{name: "integers", values: []string{"1", "2", "3"}, want: TypeInt},
		{name: "integers with nulls stay int", values: []string{"1", "<null>", "3"}, want: TypeInt},
		{name: "mixed int and float", values: []string{"1", "2.5"}, want: TypeFloat},
		{name: "numeric at threshold", values: []string{"1", "2", "x", "4", "5"}, want: TypeInt},
		{name: "numeric below threshold", values: []string{"1", "2", "x", "y", "5"}, want: TypeUnknown},
		{name: "dates", values: []string{"2024-01-01", "1/2/2024", "Jan 3, 2024"}, want: TypeDate},
		{name: "text", values: []string{"alice", "bob", "carol"}, want: TypeString},
		{name: "text dominates", values: []string{"a", "b", "c", "d", "5"}, want: TypeString},
		{name: "booleans", values: []string{"true", "False", "TRUE"}, want: TypeUnknown},
		{name: "all null", values: []string{"<null>", "<null>"}, want: TypeUnknown},
		{name: "blank strings ignored", values: []string{"  ", "7"}, want: TypeInt},
		{name: "no rows", values: nil, want: TypeUnknown},
		{name: "even split", values: []string{"a", "1"}, want: TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferColumnTypes(column(tt.values...))["c"]
			if got != tt.want {
				t.Errorf("InferColumnTypes(%q) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestInferColumnTypes_EveryColumn(t *testing.T) {
	tbl := &Table{
		Columns: []string{"id", "name", "joined"},
		Rows: []Row{
			{StringCell("1"), StringCell("Ann"), StringCell("2024-01-01")},
			{StringCell("2"), NullCell(), StringCell("2024-02-01")},
		},
	}

	got := InferColumnTypes(tbl)
	want := ColumnTypeMap{"id": TypeInt, "name": TypeString, "joined": TypeDate}
	if len(got) != len(want) {
		t.Fatalf("got %d columns, want %d", len(got), len(want))
	}
	for col, typ := range want {
		if got[col] != typ {
			t.Errorf("type[%s] = %q, want %q", col, got[col], typ)
		}
	}
}
