package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Users can quote the code to support staff. Codes are grouped by category:
//
//	PART001-PART099  part catalog conflicts and lookups
//	VAL001-VAL099    part creation validation
//	FILE001-FILE099  catalog file problems
//	UPL001-UPL099    import slots and request lifecycle
//	DB001-DB099      database constraint and connectivity failures
//	RATE001          request throttling
//	ERR000           fallback; check the logs for the technical error
//
// Domain errors are classified with errors.Is/As first. Anything else is
// matched case-insensitively against known substrings, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/partflow/internal/tabular"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// errorKind maps a sentinel error to a user message.
type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order with errors.Is. More specific sentinels come first.
var errorKinds = []errorKind{
	{ErrConflict, UserMessage{
		Message: "A part with this designation code already exists",
		Action:  "Open the existing part or use a different designation code",
		Code:    "PART001",
	}},
	{ErrNotFound, UserMessage{
		Message: "The requested record was not found",
		Action:  "Check the designation code or identifier and try again",
		Code:    "PART002",
	}},
	{ErrNoRoute, UserMessage{
		Message: "This part has no production route",
		Action:  "Assign a route template to the part before recording progress",
		Code:    "PART003",
	}},
	{ErrRouteComplete, UserMessage{
		Message: "Every stage of this part's route is already completed",
		Action:  "No further progress can be recorded for this part",
		Code:    "PART004",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the catalog into smaller files",
		Code:    "FILE001",
	}},
	{tabular.ErrEmptyFile, UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a catalog with at least one header row and data rows",
		Code:    "FILE005",
	}},
	{tabular.ErrNoHeader, UserMessage{
		Message: "No column header row was found",
		Action:  "Add a header row such as: №, Обозначение, Наименование, Кол-во, Размер, Операции, Прим.",
		Code:    "FILE006",
	}},
	{tabular.ErrUnknownEncoding, UserMessage{
		Message: "The file encoding is not supported",
		Action:  "Save the file as UTF-8 or Windows-1251",
		Code:    "FILE003",
	}},
	{ErrMalformedFile, UserMessage{
		Message: "The file could not be read as a catalog",
		Action:  "Export the spreadsheet as comma-separated CSV and upload it again",
		Code:    "FILE002",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try importing a smaller file or check your connection",
		Code:    "UPL005",
	}},
}

// validationMessages maps ValidationError fields to messages.
var validationMessages = map[string]UserMessage{
	"quantity_total": {
		Message: "Quantity must be a whole number of at least 1",
		Action:  "Correct the quantity and submit again",
		Code:    "VAL002",
	},
	"route_template_id": {
		Message: "The selected route template does not exist",
		Action:  "Choose a route template from the list",
		Code:    "VAL003",
	},
	"user": {
		Message: "The acting user is unknown",
		Action:  "Sign in again or provide a valid API key",
		Code:    "VAL004",
	},
}

var requiredFieldMessage = UserMessage{
	Message: "A required field is empty",
	Action:  "Fill in designation code, product group and name",
	Code:    "VAL001",
}

// errorPattern defines a substring to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catches driver and transport errors that carry no sentinel.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Reload the page and check for an existing record",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate designation codes",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Choose an existing route template",
			Code:    "DB003",
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
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE004",
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

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Nil maps to the zero UserMessage.
//
//	msg := MapError(fmt.Errorf("create part: %w", ErrConflict))
//	// msg.Code == "PART001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		if msg, ok := validationMessages[ve.Field]; ok {
			return msg
		}
		return requiredFieldMessage
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
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

// FormatUserError renders an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
