package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/sheetconv/internal/config"
	"github.com/JonMunkholm/sheetconv/internal/core"
	"github.com/spf13/cobra"
)

// sourceOptions selects what to read from an input file.
type sourceOptions struct {
	sheet string
	trim  bool
}

func (o *sourceOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.sheet, "sheet", "", "Spreadsheet tab (default: first sheet)")
	cmd.Flags().BoolVar(&o.trim, "trim", false, "Trim surrounding whitespace from headers and cells")
}

func (o *sourceOptions) load(path string) (*core.Table, error) {
	if core.DetectKind(path) == core.KindCSV && o.sheet != "" {
		return nil, withCode(exitUsage, fmt.Errorf("--sheet does not apply to csv files"))
	}
	return core.ParseFile(path, core.ParseOptions{Sheet: o.sheet, Trim: o.trim})
}

func newSheetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets FILE",
		Short: "List the sheets of a workbook",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := core.SheetNames(args[0])
			if err != nil {
				return err
			}
			for _, s := range sheets {
				fmt.Fprintln(a.stdout, s)
			}
			return nil
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		src  sourceOptions
		rows int
	)

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Show the first rows and inferred column types",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := src.load(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("rows") {
				rows = a.cfg.Convert.PreviewRows
			}
			return writePreview(a.stdout, t, core.InferColumnTypes(t), rows)
		},
	}

	src.bind(cmd)
	cmd.Flags().IntVar(&rows, "rows", core.DefaultPreviewRows, "Number of rows to show (default from PREVIEW_ROWS)")
	return cmd
}

// writePreview prints a header of column names, a line of types and the
// first n rows, aligned in columns.
func writePreview(w io.Writer, t *core.Table, types core.ColumnTypeMap, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	typeRow := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		typeRow[i] = "(" + string(types[c]) + ")"
	}
	fmt.Fprintln(tw, strings.Join(typeRow, "\t"))

	head := t.Head(n)
	for _, row := range head.Rows {
		vals := make([]string, len(row))
		for i, c := range row {
			vals[i] = c.Value
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d of %d rows\n", len(head.Rows), len(t.Rows))
	return err
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		src      sourceOptions
		required []string
		unique   []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check required, typed and unique columns",
		Long: "Validate reports every row with a missing required value, a value that\n" +
			"does not fit its column's inferred type, or a duplicate key across the\n" +
			"unique columns. It exits with status 3 when any row has an error.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := src.load(args[0])
			if err != nil {
				return err
			}
			res, err := core.Validate(t, required, unique)
			if err != nil {
				return withCode(exitUsage, err)
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else if err := writeReport(a.stdout, res); err != nil {
				return err
			}

			if n := res.Errors.ErrorRows(); n > 0 {
				return withCode(exitValidation, fmt.Errorf("%d of %d rows have errors", n, len(res.Rows)))
			}
			return nil
		},
	}

	src.bind(cmd)
	cmd.Flags().StringSliceVar(&required, "required", nil, "Columns that must not be empty")
	cmd.Flags().StringSliceVar(&unique, "unique", nil, "Columns whose combined values must be unique")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// writeReport prints one line per cell error. Row numbers count data rows
// from 1, not including the header.
func writeReport(w io.Writer, res *core.ValidationResult) error {
	for i, rowErrs := range res.Errors {
		for _, col := range res.Columns {
			msg, ok := rowErrs[col]
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(w, "row %d, %s: %s\n", i+1, col, msg); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%d rows checked, %d with errors\n", len(res.Rows), res.Errors.ErrorRows())
	return err
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		src    sourceOptions
		format string
		table  string
		model  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate FILE",
		Short: "Render the file as an SQL, ORM or JSON script",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = a.cfg.Convert.DefaultFormat
			}
			if !cmd.Flags().Changed("table") {
				table = a.cfg.Convert.DefaultTableName
			}
			if !cmd.Flags().Changed("model") {
				model = a.cfg.Convert.DefaultModelName
			}

			f, err := core.ParseFormat(format)
			if err != nil {
				return withCode(exitUsage, err)
			}

			// Scripts are always built from trimmed values.
			src.trim = true
			t, err := src.load(args[0])
			if err != nil {
				return err
			}

			script, err := core.Generate(f, t, core.GenerateOptions{TableName: table, ModelName: model})
			if err != nil {
				return withCode(exitUsage, err)
			}

			if output == "" || output == "-" {
				_, err := fmt.Fprintln(a.stdout, script)
				return err
			}
			if err := os.WriteFile(output, []byte(script), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(t.Rows), filepath.Clean(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&src.sheet, "sheet", "", "Spreadsheet tab (default: first sheet)")
	cmd.Flags().StringVarP(&format, "format", "f", "sql", "Output format: sql, orm or json (default from DEFAULT_FORMAT)")
	cmd.Flags().StringVar(&table, "table", core.DefaultTableName, "Table name for SQL output (default from DEFAULT_TABLE_NAME)")
	cmd.Flags().StringVar(&model, "model", core.DefaultModelName, "Model name for ORM output (default from DEFAULT_MODEL_NAME)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage HCL export profiles",
	}

	var format string
	export := &cobra.Command{
		Use:   "export PATH",
		Short: "Write the effective export settings to an HCL profile",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := config.ProfileFrom(a.cfg)
			if format != "" {
				f, err := core.ParseFormat(format)
				if err != nil {
					return withCode(exitUsage, err)
				}
				p.Format = string(f)
			}
			if err := config.ExportProfile(args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote profile %s\n", args[0])
			return nil
		},
	}
	export.Flags().StringVar(&format, "format", "", "Override the default output format in the profile")

	cmd.AddCommand(export)
	return cmd
}
