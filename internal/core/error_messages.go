package core

// # Error Codes Reference
//
// Parse failures are mapped to user-facing messages with a stable code that
// users can quote to support.
//
// # Statement Errors (COL, CELL, CAT, GRP, ROW)
//
//	COL001  - A required column header was not found in a table
//	          Action: the broker may have renamed a column; add a header override
//	CELL001 - A cell could not be read as a number or date
//	          Action: check the row and column named in the details
//	CAT001  - A row holds a kind or direction the parser does not know
//	          Action: report the value so the format can be extended
//	GRP001  - A multi-row record is cut off by the end of a table
//	          Action: the statement may be truncated; export it again
//	ROW001  - A row produced an invalid record
//	          Action: check the row named in the details
//
// # Format Errors (FMT001-FMT099)
//
//	FMT001 - The requested statement format does not exist
//	FMT002 - The statement format could not be recognized
//	FMT003 - The statement matches more than one format
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File exceeds the size limit
//	FILE002 - File is not a readable spreadsheet
//	FILE003 - No file was uploaded
//	FILE004 - The uploaded file is empty
//
// # Parse Errors (PAR001-PAR099)
//
//	PAR001 - Too many statements are being parsed
//	PAR002 - Request was cancelled
//	PAR003 - Request timed out
//
// # Registry Errors (REG001-REG099)
//
//	REG001 - The security registry database is unreachable
//
// # Default Error (ERR000)
//
// Fallback when nothing matches; check the logs for the technical error.
//
// Typed errors are recognized with errors.As first. Remaining errors are
// matched case-insensitively by substring, first match wins.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/brokerstatements/internal/domain"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`          // What happened (user-friendly)
	Action  string `json:"action,omitempty"` // What to do about it
	Code    string `json:"code"`             // Error code for support reference
}

var (
	msgMissingColumn = UserMessage{
		Message: "A required column was not found in the statement",
		Action:  "The broker may have renamed a column; add a header override or report the statement",
		Code:    "COL001",
	}
	msgMalformedCell = UserMessage{
		Message: "A cell could not be read as a number or date",
		Action:  "Check the row and column named in the details",
		Code:    "CELL001",
	}
	msgUnknownCategory = UserMessage{
		Message: "The statement contains an unsupported instrument kind or direction",
		Action:  "Report the value so the format can be extended",
		Code:    "CAT001",
	}
	msgPartialGroup = UserMessage{
		Message: "A multi-row record is cut off by the end of a table",
		Action:  "The statement may be truncated; export it again",
		Code:    "GRP001",
	}
	msgInvalidRecord = UserMessage{
		Message: "A statement row produced an invalid record",
		Action:  "Check the row named in the details",
		Code:    "ROW001",
	}
	msgUnknownFormat = UserMessage{
		Message: "Unknown statement format",
		Action:  "Use one of the formats listed by /api/formats",
		Code:    "FMT001",
	}
	msgUndetectable = UserMessage{
		Message: "The statement format could not be recognized",
		Action:  "Choose the format explicitly",
		Code:    "FMT002",
	}
	msgAmbiguous = UserMessage{
		Message: "The statement matches more than one format",
		Action:  "Choose the format explicitly",
		Code:    "FMT003",
	}
	msgTooManyParses = UserMessage{
		Message: "The system is busy parsing other statements",
		Action:  "Please wait a moment and try again",
		Code:    "PAR001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages
// for errors that carry no type, such as those from the spreadsheet readers.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Upload statements one period at a time",
			Code:    "FILE001",
		},
	},
	{
		pattern: "open xls",
		msg: UserMessage{
			Message: "File is not a readable spreadsheet",
			Action:  "Upload the statement as exported by the broker (xlsx, xls or csv)",
			Code:    "FILE002",
		},
	},
	{
		pattern: "read csv",
		msg: UserMessage{
			Message: "File is not a readable spreadsheet",
			Action:  "Upload the statement as exported by the broker (xlsx, xls or csv)",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was uploaded",
			Action:  "Attach a statement file",
			Code:    "FILE003",
		},
	},
	{
		pattern: "empty document",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Attach a statement file with data",
			Code:    "FILE004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "PAR002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller statement or try again later",
			Code:    "PAR003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the security registry",
			Action:  "Please try again in a few moments",
			Code:    "REG001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed statement errors take precedence over text patterns, also inside
// joined and wrapped errors.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		missing   *MissingColumnError
		malformed *MalformedCellError
		category  *UnrecognizedCategoryError
		partial   *PartialRowGroupError
		invalid   *domain.InvalidRecordError
		rowErr    *RowError
	)
	switch {
	case errors.As(err, &missing):
		return msgMissingColumn
	case errors.As(err, &malformed):
		return msgMalformedCell
	case errors.As(err, &category):
		return msgUnknownCategory
	case errors.As(err, &partial):
		return msgPartialGroup
	case errors.As(err, &invalid), errors.As(err, &rowErr):
		return msgInvalidRecord
	case errors.Is(err, ErrUnknownFormat):
		return msgUnknownFormat
	case errors.Is(err, ErrUndetectableFormat):
		return msgUndetectable
	case errors.Is(err, ErrAmbiguousFormat):
		return msgAmbiguous
	case errors.Is(err, ErrTooManyParses):
		return msgTooManyParses
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

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
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
