package core

// error_messages.go maps technical errors to user-facing messages with
// codes that users can quote to support.
//
// # Error Codes Reference
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: file exceeds the upload size limit
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Invalid CSV: file could not be read as CSV
//	          Patterns: "invalid csv"
//
//	FILE003 - Unreadable spreadsheet: workbook could not be opened
//	          Patterns: "open spreadsheet"
//
//	FILE004 - No file: no file was selected
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: file has no header row
//	          Patterns: "empty file"
//
//	FILE006 - Unsupported format: extension is not .csv, .xlsx or .xlsm
//	          Patterns: "unsupported format"
//
//	FILE007 - File not found: uploaded or generated file is gone
//	          Patterns: "file not found", "record not found"
//
// # Sheet and Validation Errors
//
//	SHEET001 - Sheet not found: requested tab does not exist
//	           Patterns: "sheet not found"
//
//	VAL005   - Column not found: a required/unique column is not in the file
//	           Patterns: "column not found"
//
// # Generation Errors (GEN001-GEN099)
//
//	GEN001 - Unsupported output: format is not sql, orm or json
//	         Patterns: "unsupported output format"
//
//	GEN002 - Invalid identifier: table or model name is not a valid name
//	         Patterns: "invalid identifier"
//
// # Conversion Errors (UPL001-UPL099)
//
//	UPL002 - System busy: every conversion slot is taken
//	         Patterns: "too many conversions"
//
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Other
//
//	DB004   - Database unavailable. Patterns: "connection refused"
//	RATE001 - Rate limited. Patterns: "rate limit"
//	ERR000  - Fallback when no pattern matches; check the logs.
//
// Patterns are matched case-insensitively with strings.Contains, first
// match wins.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered: specific patterns before general ones.
var errorPatterns = []errorPattern{
	// File errors
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "open spreadsheet",
		msg: UserMessage{
			Message: "The spreadsheet could not be opened",
			Action:  "Save the workbook as .xlsx and upload it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "unsupported output format",
		msg: UserMessage{
			Message: "Unsupported output format",
			Action:  "Choose SQL, ORM or JSON",
			Code:    "GEN001",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "Unsupported file format",
			Action:  "Upload a .csv, .xlsx or .xlsm file",
			Code:    "FILE006",
		},
	},
	{
		pattern: "sheet not found",
		msg: UserMessage{
			Message: "The selected sheet does not exist in this workbook",
			Action:  "Pick one of the listed sheets",
			Code:    "SHEET001",
		},
	},
	{
		pattern: "file not found",
		msg: UserMessage{
			Message: "File not found",
			Action:  "Upload the file again",
			Code:    "FILE007",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "File not found",
			Action:  "Upload the file again",
			Code:    "FILE007",
		},
	},

	// Validation and generation errors
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found in the file",
			Action:  "Choose columns from the preview header",
			Code:    "VAL005",
		},
	},
	{
		pattern: "invalid identifier",
		msg: UserMessage{
			Message: "Table or model name is not valid",
			Action:  "Use letters, digits, underscores and dots, starting with a letter",
			Code:    "GEN002",
		},
	},

	// Conversion capacity and request lifetime
	{
		pattern: "too many conversions",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
