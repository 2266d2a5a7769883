// Package templates renders the HTML pages of the converter UI.
//
// Pages are templ components written in the .templ files of this package;
// the _templ.go files are generated from them with `templ generate`.
package templates

import (
	"strconv"
	"time"
)

// RecentUpload is one row of the recent uploads list.
type RecentUpload struct {
	ID         int64
	Name       string
	SheetName  string
	UploadedAt time.Time
}

// SheetData drives the sheet chooser.
type SheetData struct {
	FileID   int64
	BaseName string
	Sheets   []string
	Selected string
}

// PreviewData drives the preview page.
type PreviewData struct {
	FileID    int64
	BaseName  string
	Sheets    []string
	Sheet     string
	Trim      bool
	Columns   []string
	Types     map[string]string
	Rows      [][]string
	TotalRows int
	TableName string
	ModelName string
	Format    string
}

// ValidationData drives the validation result page. Errors is aligned with
// Rows.
type ValidationData struct {
	FileID    int64
	BaseName  string
	Columns   []string
	Types     map[string]string
	Rows      [][]string
	Errors    []map[string]string
	ErrorRows int
	TableName string
	ModelName string
	Format    string
}

// GenerateData drives the generated script page.
type GenerateData struct {
	FileID      int64
	BaseName    string
	Format      string
	Script      string
	DownloadURL string
}

// outputFormat is a generator format with its label.
type outputFormat struct {
	Value string
	Label string
}

var outputFormats = []outputFormat{
	{Value: "sql", Label: "SQL"},
	{Value: "orm", Label: "ORM"},
	{Value: "json", Label: "JSON"},
}

func fileURL(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// cell returns row[i], or "" for a short row.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// rowErrors returns the errors for row i, or nil.
func rowErrors(errs []map[string]string, i int) map[string]string {
	if i < len(errs) {
		return errs[i]
	}
	return nil
}
