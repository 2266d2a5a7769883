package core

// generate.go renders a table as a migration script.
//
// Three formats are supported:
//   - sql:  INSERT INTO <table> VALUES (...); one statement per row
//   - orm:  <Model>.objects.create(col='...') one call per row, nulls omitted
//   - json: array of row objects, keys in column order, 2-space indent
//
// Values are emitted as text for SQL and ORM. JSON uses the inferred
// column types so int and float columns become JSON numbers.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Format is an output script format.
type Format string

const (
	FormatSQL  Format = "sql"
	FormatORM  Format = "orm"
	FormatJSON Format = "json"
)

// Default identifiers used when the caller supplies none.
const (
	DefaultTableName = "your_table_name"
	DefaultModelName = "YourModel"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ParseFormat converts user input into a Format. Empty input selects SQL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatSQL, nil
	case FormatSQL, FormatORM, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOutput, s)
	}
}

// Ext returns the file extension (without dot) for generated files.
func (f Format) Ext() string { return string(f) }

// GenerateOptions names the target of the script.
type GenerateOptions struct {
	TableName string
	ModelName string
}

func (o GenerateOptions) withDefaults() GenerateOptions {
	if strings.TrimSpace(o.TableName) == "" {
		o.TableName = DefaultTableName
	}
	if strings.TrimSpace(o.ModelName) == "" {
		o.ModelName = DefaultModelName
	}
	o.TableName = strings.TrimSpace(o.TableName)
	o.ModelName = strings.TrimSpace(o.ModelName)
	return o
}

// ValidateIdentifier checks that name is safe to splice into a script.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// Generate dispatches to the generator for format.
func Generate(format Format, t *Table, opts GenerateOptions) (string, error) {
	opts = opts.withDefaults()

	switch format {
	case FormatSQL:
		if err := ValidateIdentifier(opts.TableName); err != nil {
			return "", err
		}
		return GenerateSQL(t, opts.TableName), nil
	case FormatORM:
		if err := ValidateIdentifier(opts.ModelName); err != nil {
			return "", err
		}
		return GenerateORM(t, opts.ModelName), nil
	case FormatJSON:
		return GenerateJSON(t, InferColumnTypes(t))
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOutput, string(format))
	}
}

// GenerateSQL emits one INSERT statement per row.
func GenerateSQL(t *Table, table string) string {
	lines := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]string, len(row))
		for j, c := range row {
			if c.Null {
				vals[j] = "NULL"
				continue
			}
			vals[j] = "'" + escapeQuoted(c.Value) + "'"
		}
		lines[i] = fmt.Sprintf("INSERT INTO %s VALUES (%s);", table, strings.Join(vals, ", "))
	}
	return strings.Join(lines, "\n")
}

// GenerateORM emits one create call per row. Null fields are omitted.
func GenerateORM(t *Table, model string) string {
	lines := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		args := make([]string, 0, len(row))
		for j, c := range row {
			if c.Null {
				continue
			}
			args = append(args, fmt.Sprintf("%s='%s'", t.Columns[j], escapeQuoted(c.Value)))
		}
		lines[i] = fmt.Sprintf("%s.objects.create(%s)", model, strings.Join(args, ", "))
	}
	return strings.Join(lines, "\n")
}

// GenerateJSON emits the rows as a pretty-printed JSON array.
func GenerateJSON(t *Table, types ColumnTypeMap) (string, error) {
	rows := make([]jsonRow, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]any, len(row))
		for j, c := range row {
			vals[j] = jsonValue(c, types[t.Columns[j]])
		}
		rows[i] = jsonRow{columns: t.Columns, values: vals}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func jsonValue(c Cell, colType ColumnType) any {
	if c.Null {
		return nil
	}
	switch colType {
	case TypeInt:
		if n, ok := ParseInt(c.Value); ok {
			return n
		}
	case TypeFloat:
		if f, ok := ParseFloat(c.Value); ok {
			return f
		}
	}
	return normalizeDash(c.Value)
}

// jsonRow marshals as an object whose keys keep column order.
type jsonRow struct {
	columns []string
	values  []any
}

func (r jsonRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(col); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(r.values[i]); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// escapeQuoted prepares a value for a single-quoted literal.
func escapeQuoted(s string) string {
	return strings.ReplaceAll(normalizeDash(s), "'", "''")
}

// normalizeDash collapses " - " to "-", matching how the exports have
// always been written.
func normalizeDash(s string) string {
	return strings.ReplaceAll(s, " - ", "-")
}
