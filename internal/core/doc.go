// Package core provides the business logic for spreadsheet conversion.
//
// This package contains all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the CLI and tests without
// modification.
//
// # Flow
//
//  1. [Service.SaveUpload] stores a CSV or XLSX file and records it
//  2. [Service.SelectSheet] remembers a sheet for multi-sheet workbooks
//  3. [Service.Preview] shows the first rows and the inferred column types
//  4. [Service.Validate] reports missing, mistyped and duplicate values per row
//  5. [Service.Generate] writes an SQL, ORM or JSON script for download
//
// The building blocks are usable on their own: [ParseFile] loads a
// [Table], [InferColumnTypes] tags its columns, [Validate] produces an
// [ErrorReport] and [Generate] renders a script.
//
// # Error Handling
//
// Operations return wrapped sentinel errors ([ErrSheetNotFound],
// [ErrColumnNotFound], ...) for errors.Is checks. [MapError] turns any
// error into a user-facing message with a support code:
//
//   - FILE001-FILE007: file errors (size, format, missing)
//   - SHEET001, VAL005: unknown sheet or column
//   - GEN001-GEN002: output format and identifiers
//   - UPL002-UPL005: capacity and request lifetime
package core
