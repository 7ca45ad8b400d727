package core

// error_messages.go maps technical errors to messages users can act on.
//
// # Error Codes Reference
//
// Codes are quoted by users to support staff, so they must stay stable.
//
//	DB001  Duplicate key          "duplicate key"
//	DB002  Unique constraint      "unique constraint", "violates unique"
//	DB003  Foreign key            "foreign key constraint", "violates foreign key"
//	DB004  Connection refused     "connection refused"
//	DB005  Connection reset       "connection reset"
//	DB006  Timeout                "timeout"
//	DB007  Deadlock               "deadlock"
//	DB008  Check constraint       "violates check constraint"
//
//	VAL001 Invalid input          *ValidationError
//	VAL002 Invalid date           "invalid date"
//	VAL003 Invalid number         "invalid number"
//	VAL004 Invalid option         "invalid option"
//
//	FILE001 File too large        "file too large"
//	FILE002 Invalid CSV           "invalid csv"
//	FILE003 Encoding error        "encoding error"
//	FILE004 No file               "no file provided"
//	FILE005 Empty file            "empty file"
//	FILE006 Not a CSV             ErrNotCSV
//
//	IMP001 Import busy            ErrTooManyImports
//	IMP002 Nothing imported       ErrNothingImported
//	IMP003 Sheet fetch failed     "sheet fetch"
//	IMP004 Sheets disabled        ErrSheetsDisabled
//	IMP005 Request cancelled      "context canceled"
//	IMP006 Request timed out      "context deadline exceeded"
//
//	EXP001 Mixed workspaces       ErrMixedWorkspaces
//
//	WS001  Workspace not empty    *WorkspaceNotEmptyError
//	WS002  Workspace inactive     "workspace is inactive"
//
//	AUTH001 Bad credentials       ErrInvalidCredentials
//	AUTH002 Permission denied     ErrForbidden
//	AUTH003 Session expired       "token is expired", "token has invalid", "invalid token"
//	AUTH004 Not signed in         "missing bearer token"
//
//	NF001  Not found              ErrNotFound
//	RATE001 Rate limited          "rate limit"
//	ERR000 Unknown                fallback; check the logs for the technical error
//
// Typed and sentinel errors are matched first with errors.As/errors.Is.
// Patterns are then matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns go before general ones.

import (
	"errors"
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

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrTooManyImports, UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP001"}},
	{ErrNothingImported, UserMessage{"No rows could be imported", "Review the row errors and fix the file", "IMP002"}},
	{ErrNotCSV, UserMessage{"Please upload a CSV file", "Save the file as .csv and upload again", "FILE006"}},
	{ErrSheetsDisabled, UserMessage{"Spreadsheet import is not configured", "Ask an administrator to add Google credentials", "IMP004"}},
	{ErrMixedWorkspaces, UserMessage{ErrMixedWorkspaces.Error(), "Select leads from a single workspace", "EXP001"}},
	{ErrInvalidCredentials, UserMessage{"Invalid username or password", "Check your credentials and try again", "AUTH001"}},
	{ErrForbidden, UserMessage{"You do not have permission to do that", "Ask an administrator for access", "AUTH002"}},
	{ErrNotFound, UserMessage{"The requested record was not found", "It may have been deleted. Refresh and try again", "NF001"}},
}

var errorPatterns = []errorPattern{
	// Database constraints
	{"duplicate key", UserMessage{"A record with this ID already exists", "Download failed rows to review duplicates", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries in your file", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review your data for duplicate key values", "DB002"}},
	{"foreign key constraint", UserMessage{"Referenced record does not exist", "Make sure the workspace or user still exists", "DB003"}},
	{"violates foreign key", UserMessage{"Referenced record does not exist", "Make sure the workspace or user still exists", "DB003"}},
	{"violates check constraint", UserMessage{"A value is outside the allowed range", "Check the row for empty status or unknown types", "DB008"}},

	// Database connectivity
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "IMP006"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	// Values
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", "VAL002"}},
	{"invalid number", UserMessage{"Invalid number format detected", "Remove letters and use a plain decimal number", "VAL003"}},
	{"invalid option", UserMessage{"Value is not one of the allowed options", "Pick one of the field's options", "VAL004"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated text", "FILE002"}},
	{"encoding error", UserMessage{"File contains invalid characters", "Save the file as UTF-8 and upload again", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV file to upload", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a CSV file with data rows", "FILE005"}},

	// Imports
	{"sheet fetch", UserMessage{"Could not read the spreadsheet", "Check the spreadsheet ID, sheet name and sharing settings", "IMP003"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP005"}},

	// Workspaces
	{"workspace is inactive", UserMessage{"This workspace is inactive", "Activate the workspace or choose another", "WS002"}},

	// Auth
	{"token is expired", UserMessage{"Your session has expired", "Sign in again", "AUTH003"}},
	{"token has invalid", UserMessage{"Your session is invalid", "Sign in again", "AUTH003"}},
	{"invalid token", UserMessage{"Your session is invalid", "Sign in again", "AUTH003"}},
	{"missing bearer token", UserMessage{"Sign in required", "Sign in and try again", "AUTH004"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(errors.New("duplicate key violation"))
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return UserMessage{Message: capitalize(ve.Message), Action: "Correct the input and try again", Code: "VAL001"}
	}
	var wne *WorkspaceNotEmptyError
	if errors.As(err, &wne) {
		return UserMessage{Message: wne.Error(), Action: "Move or delete its leads first", Code: "WS001"}
	}
	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
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

// NewUserError maps err; it returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
