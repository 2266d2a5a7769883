package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestGenerateSQL(t *testing.T) {
	tbl := table([]string{"id", "name", "city"},
		[]string{"1", "O'Brien", "New York - NY"},
		[]string{"2", "<null>", "Oslo"},
	)

	got := GenerateSQL(tbl, "people")
	want := "INSERT INTO people VALUES ('1', 'O''Brien', 'New York-NY');\n" +
		"INSERT INTO people VALUES ('2', NULL, 'Oslo');"
	if got != want {
		t.Errorf("GenerateSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateORM(t *testing.T) {
	tbl := table([]string{"id", "name"},
		[]string{"1", "O'Brien"},
		[]string{"2", "<null>"},
		[]string{"<null>", "<null>"},
	)

	got := GenerateORM(tbl, "Person")
	want := "Person.objects.create(id='1', name='O''Brien')\n" +
		"Person.objects.create(id='2')\n" +
		"Person.objects.create()"
	if got != want {
		t.Errorf("GenerateORM =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateJSON(t *testing.T) {
	tbl := table([]string{"zeta", "id", "score", "joined", "name"},
		[]string{"<b>", "1", "9.5", "2024-01-15", "O'Brien"},
		[]string{"a - b", "2", "7", "2024-02-01", "<null>"},
	)

	got, err := GenerateJSON(tbl, InferColumnTypes(tbl))
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}

	want := `[
  {
    "zeta": "<b>",
    "id": 1,
    "score": 9.5,
    "joined": "2024-01-15",
    "name": "O'Brien"
  },
  {
    "zeta": "a-b",
    "id": 2,
    "score": 7,
    "joined": "2024-02-01",
    "name": null
  }
]`
	if got != want {
		t.Errorf("GenerateJSON =\n%s\nwant\n%s", got, want)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded[0]["name"] != "O'Brien" {
		t.Errorf("round trip name = %v, want O'Brien", decoded[0]["name"])
	}
}

func TestGenerateJSON_Empty(t *testing.T) {
	got, err := GenerateJSON(table([]string{"a"}), ColumnTypeMap{})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if got != "[]" {
		t.Errorf("GenerateJSON = %q, want []", got)
	}
}

func TestGenerate(t *testing.T) {
	tbl := table([]string{"id"}, []string{"1"})

	tests := []struct {
		name    string
		format  Format
		opts    GenerateOptions
		want    string
		wantErr error
	}{
		{name: "sql default table", format: FormatSQL, want: "INSERT INTO your_table_name VALUES ('1');"},
		{name: "sql dotted table", format: FormatSQL, opts: GenerateOptions{TableName: "public.users"}, want: "INSERT INTO public.users VALUES ('1');"},
		{name: "orm default model", format: FormatORM, want: "YourModel.objects.create(id='1')"},
		{name: "json", format: FormatJSON, want: "[\n  {\n    \"id\": 1\n  }\n]"},
		{name: "invalid table", format: FormatSQL, opts: GenerateOptions{TableName: "t; DROP TABLE x"}, wantErr: ErrInvalidIdentifier},
		{name: "invalid model", format: FormatORM, opts: GenerateOptions{ModelName: "1Model"}, wantErr: ErrInvalidIdentifier},
		{name: "unknown format", format: Format("xml"), wantErr: ErrUnsupportedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.format, tbl, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "", want: FormatSQL},
		{input: "sql", want: FormatSQL},
		{input: " JSON ", want: FormatJSON},
		{input: "orm", want: FormatORM},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedOutput) {
					t.Fatalf("err = %v, want ErrUnsupportedOutput", err)
				}
				if !strings.Contains(MapError(err).Code, "GEN001") {
					t.Errorf("code = %q, want GEN001", MapError(err).Code)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = (%q, %v), want %q", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	tbl := table([]string{"zeta", "alpha", "mid"},
		[]string{"x", "<null>", ""},
	)

	got, err := json.Marshal(tbl.Records())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `[{"zeta":"x","alpha":null,"mid":""}]`
	if string(got) != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	if c, ok := tbl.Records()[0].Get("alpha"); !ok || !c.Null {
		t.Errorf("Get(alpha) = %+v, %v; want null cell", c, ok)
	}
}
