package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// Each message carries a code users can quote to support staff.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Split the export into smaller files
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Invalid CSV: File could not be read as CSV
//	          Action: Upload the file exactly as the scale or this app exported it
//	          Patterns: "invalid csv"
//
//	FILE003 - Encoding error: File contains unreadable characters
//	          Action: Save the file as UTF-8
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Action: Select at least one CSV file
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Upload a file with measurement rows
//	          Patterns: "empty file"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Invalid format: File is not a BodyMetrics export
//	         Action: Re-export the data from BodyMetrics and import that file
//	         Patterns: "invalid format"
//
//	IMP002 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent imports"
//
//	IMP003 - Too many files: More files than one import accepts
//	         Action: Import the files in smaller batches
//	         Patterns: "too many files"
//
//	IMP004 - Record not found: The measurement is not in the current session
//	         Action: Import the device files again
//	         Patterns: "record not found"
//
// # Client Errors (CLI001-CLI099)
//
//	CLI001 - Client exists: A client with this ID already exists
//	         Action: Choose a different client code
//	         Patterns: "client already exists"
//
//	CLI002 - Client not found: The client does not exist
//	         Action: Refresh the client list
//	         Patterns: "client not found"
//
// # Backup Errors (BAK001-BAK099)
//
//	BAK001 - Invalid backup: The backup file is not valid
//	         Action: Select a backup created by BodyMetrics
//	         Patterns: "invalid backup"
//
//	BAK002 - Archive unavailable: Remote backup archive is not configured
//	         Action: Set BACKUP_S3_BUCKET to enable archiving
//	         Patterns: "archive not configured"
//
// # Chart and Export Errors (CHT001-CHT099, EXP001-EXP099)
//
//	CHT001 - Unknown metric: The requested metric cannot be charted
//	         Action: Pick one of the listed metrics
//	         Patterns: "unknown metric"
//
//	CHT002 - Unknown indicator: The requested health indicator does not exist
//	         Action: Use fat, visceral, bmi or meta
//	         Patterns: "unknown indicator"
//
//	EXP001 - Nothing to export: The selection contains no records
//	         Action: Widen the date range or assign records to the client
//	         Patterns: "no records to export"
//
//	EXP002 - Unsupported format: Export format is not supported
//	         Action: Use csv, json or xml
//	         Patterns: "unsupported export format"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	REQ002 - Request timeout: Request timed out
//	         Action: Try again with fewer files
//	         Patterns: "context deadline exceeded"
//
//	REQ003 - Invalid date range: Custom range dates are malformed
//	         Action: Use YYYY-MM-DD for start and end
//	         Patterns: "invalid date range"
//
//	REQ004 - Invalid request: The request body could not be read
//	         Action: Send a JSON body with the documented fields
//	         Patterns: "invalid request body"
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Storage unavailable: Client database could not be reached
//	         Action: Please try again in a few moments
//	         Patterns: "connection refused", "store unavailable"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively with strings.Contains, first
// match wins. For ERR000 reports, check the logs for the technical error.

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

// errorPatterns is ordered specific before general.
var errorPatterns = []errorPattern{
	// File errors
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the export into smaller files", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the export into smaller files", "FILE001"}},
	{"invalid csv", UserMessage{"File could not be read as CSV", "Upload the file exactly as the scale or this app exported it", "FILE002"}},
	{"encoding error", UserMessage{"File contains unreadable characters", "Save the file as UTF-8", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Select at least one CSV file", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload a file with measurement rows", "FILE005"}},

	// Import errors
	{"invalid format", UserMessage{"File is not a BodyMetrics export", "Re-export the data from BodyMetrics and import that file", "IMP001"}},
	{"too many concurrent imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP002"}},
	{"too many files", UserMessage{"More files than one import accepts", "Import the files in smaller batches", "IMP003"}},
	{"record not found", UserMessage{"The measurement is not in the current session", "Import the device files again", "IMP004"}},

	// Client errors
	{"client already exists", UserMessage{"A client with this ID already exists", "Choose a different client code", "CLI001"}},
	{"client not found", UserMessage{"The client does not exist", "Refresh the client list", "CLI002"}},

	// Backup errors
	{"invalid backup", UserMessage{"The backup file is not valid", "Select a backup created by BodyMetrics", "BAK001"}},
	{"archive not configured", UserMessage{"Remote backup archive is not configured", "Set BACKUP_S3_BUCKET to enable archiving", "BAK002"}},

	// Chart and export errors
	{"unknown metric", UserMessage{"The requested metric cannot be charted", "Pick one of the listed metrics", "CHT001"}},
	{"unknown indicator", UserMessage{"The requested health indicator does not exist", "Use fat, visceral, bmi or meta", "CHT002"}},
	{"no records to export", UserMessage{"The selection contains no records", "Widen the date range or assign records to the client", "EXP001"}},
	{"unsupported export format", UserMessage{"Export format is not supported", "Use csv, json or xml", "EXP002"}},

	// Request errors
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try again with fewer files", "REQ002"}},
	{"invalid date range", UserMessage{"Custom range dates are malformed", "Use YYYY-MM-DD for start and end", "REQ003"}},
	{"invalid request body", UserMessage{"The request body could not be read", "Send a JSON body with the documented fields", "REQ004"}},

	// Storage errors
	{"connection refused", UserMessage{"Client database could not be reached", "Please try again in a few moments", "STO001"}},
	{"store unavailable", UserMessage{"Client database could not be reached", "Please try again in a few moments", "STO001"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("import: %w", ErrInvalidFormat))
//	// msg.Code == "IMP001"
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

// FormatUserError renders an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Msg UserMessage
	Err error
}

// NewUserError wraps err with its mapped message. Returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Msg: MapError(err), Err: err}
}

func (e *UserError) Error() string { return e.Msg.Message }

func (e *UserError) Unwrap() error { return e.Err }
