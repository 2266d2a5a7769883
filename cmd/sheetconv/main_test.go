package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetconv/internal/config"
	"github.com/xuri/excelize/v2"
)

// run executes the CLI with args and returns stdout, stderr and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	for _, k := range []string{"EXPORT_PROFILE", "DEFAULT_FORMAT", "DEFAULT_TABLE_NAME", "DEFAULT_MODEL_NAME", "PREVIEW_ROWS"} {
		t.Setenv(k, "")
	}

	a := &app{}
	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), exitCode(err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const people = "id,name,city\n1, O'Brien ,New York - NY\n2,,Oslo\n"

func TestGenerateCmd(t *testing.T) {
	path := writeFile(t, "people.csv", people)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "sql",
			args: []string{"generate", path, "--table", "people"},
			want: "INSERT INTO people VALUES ('1', 'O''Brien', 'New York-NY');\n" +
				"INSERT INTO people VALUES ('2', NULL, 'Oslo');\n",
		},
		{
			name: "orm",
			args: []string{"generate", path, "-f", "orm", "--model", "Person"},
			want: "Person.objects.create(id='1', name='O''Brien', city='New York-NY')\n" +
				"Person.objects.create(id='2', city='Oslo')\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, stderr, code := run(t, tt.args...)
			if code != exitOK {
				t.Fatalf("exit = %d, stderr = %s", code, stderr)
			}
			if out != tt.want {
				t.Errorf("output =\n%s\nwant\n%s", out, tt.want)
			}
		})
	}
}

func TestGenerateCmd_OutputFile(t *testing.T) {
	path := writeFile(t, "people.csv", people)
	out := filepath.Join(t.TempDir(), "people.json")

	_, stderr, code := run(t, "generate", path, "-f", "json", "-o", out)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"name": "O'Brien"`) || !strings.Contains(string(data), `"id": 1`) {
		t.Errorf("json = %s", data)
	}
}

func TestGenerateCmd_Errors(t *testing.T) {
	path := writeFile(t, "people.csv", people)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "unknown format", args: []string{"generate", path, "-f", "xml"}, want: exitUsage},
		{name: "bad table", args: []string{"generate", path, "--table", "a b"}, want: exitUsage},
		{name: "missing file", args: []string{"generate", filepath.Join(t.TempDir(), "none.csv")}, want: exitError},
		{name: "sheet on csv", args: []string{"generate", path, "--sheet", "x"}, want: exitUsage},
		{name: "no args", args: []string{"generate"}, want: exitUsage},
		{name: "unknown flag", args: []string{"generate", path, "--nope"}, want: exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, code := run(t, tt.args...); code != tt.want {
				t.Errorf("exit = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestValidateCmd(t *testing.T) {
	path := writeFile(t, "people.csv", "id,email\n1,a@x\n2,\n3,a@x\n")

	out, _, code := run(t, "validate", path, "--required", "email", "--unique", "email")
	if code != exitValidation {
		t.Fatalf("exit = %d, want %d", code, exitValidation)
	}
	for _, want := range []string{
		"row 1, email: Duplicate value.",
		"row 2, email: Required field is missing.",
		"row 3, email: Duplicate value.",
		"3 rows checked, 3 with errors",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	t.Run("clean file", func(t *testing.T) {
		_, _, code := run(t, "validate", path, "--required", "id")
		if code != exitOK {
			t.Errorf("exit = %d, want 0", code)
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		_, _, code := run(t, "validate", path, "--required", "phone")
		if code != exitUsage {
			t.Errorf("exit = %d, want %d", code, exitUsage)
		}
	})
}

func TestPreviewCmd(t *testing.T) {
	path := writeFile(t, "people.csv", "id,score\n1,1.5\n2,2\n3,3\n")

	out, _, code := run(t, "preview", path, "--rows", "2")
	if code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{"(int)", "(float)", "2 of 3 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("preview missing %q:\n%s", want, out)
		}
	}
}

func TestSheetsCmd(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Q1")
	f.NewSheet("Q2")
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, _, code := run(t, "sheets", path)
	if code != exitOK || out != "Q1\nQ2\n" {
		t.Errorf("exit = %d, output = %q", code, out)
	}
}

func TestProfileExportCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.hcl")
	t.Setenv("DEFAULT_TABLE_NAME", "")

	_, stderr, code := run(t, "profile", "export", path, "--format", "json")
	if code != exitOK {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}

	p, err := config.LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if p.Format != "json" || p.TableName != "your_table_name" || p.PreviewRows != 50 {
		t.Errorf("profile = %+v", p)
	}

	// The exported profile feeds back into generate.
	csv := writeFile(t, "one.csv", "id\n1\n")
	out, _, code := run(t, "--profile", path, "generate", csv)
	if code != exitOK || !strings.HasPrefix(out, "[") {
		t.Errorf("exit = %d, output = %q, want json from profile", code, out)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != exitOK {
		t.Errorf("exitCode(nil) = %d", got)
	}
	if got := exitCode(errors.New("x")); got != exitError {
		t.Errorf("exitCode(plain) = %d", got)
	}
	if got := exitCode(withCode(exitValidation, errors.New("x"))); got != exitValidation {
		t.Errorf("exitCode(coded) = %d", got)
	}
	if withCode(exitUsage, nil) != nil {
		t.Error("withCode(nil) should be nil")
	}
}
