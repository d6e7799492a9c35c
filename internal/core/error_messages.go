// Package core provides the validation and linkage engine.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference, and the action catalog attached to every Finding.
//
// Error codes are grouped by category:
//
// # Input Errors (IN001-IN099)
//
//	IN001 - Missing table: One of the three tables was not supplied
//	        Action: Upload event, occurrence and emof files together
//	        Patterns: "nil table", "missing table"
//
//	IN002 - Invalid CSV: File is not a valid CSV
//	        Action: Ensure the file is comma-separated with a header row
//	        Patterns: "invalid csv", "parse csv"
//
//	IN003 - Empty file: The file has no header row
//	        Action: Upload a CSV file with a header and data rows
//	        Patterns: "empty file"
//
//	IN004 - File too large: File exceeds the configured limit
//	        Action: Split the dataset or raise UPLOAD_MAX_FILE_SIZE
//	        Patterns: "file too large", "request body too large"
//
//	IN005 - Missing key column: A join key column is absent
//	        Action: Add the key column named in the message
//	        Patterns: "missing key column"
//
//	IN006 - Invalid parameter: A query parameter has an unusable value
//	        Action: Check the request parameters
//	        Patterns: "invalid parameter"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Table not found: Source table does not exist
//	        Action: Check the DWC_*_TABLE settings
//	        Patterns: "does not exist"
//
//	DB002 - Connection refused: Unable to connect to database
//	        Action: Please try again in a few moments
//	        Patterns: "connection refused"
//
// # Taxonomy Errors (TAX001-TAX099)
//
//	TAX001 - Service unavailable: Taxonomic service could not be reached
//	         Action: Re-run later; other checks are unaffected
//	         Patterns: "taxonomy batch failed"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - System busy: Too many validation runs in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent validation runs"
//
//	RUN002 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	RUN003 - Request timeout: Request timed out
//	         Action: Try a smaller dataset or disable taxonomy checks
//	         Patterns: "context deadline exceeded"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

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

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Input Errors (IN001-IN006)
	// =========================================================================
	{
		pattern: "nil table",
		msg: UserMessage{
			Message: "A required table was not supplied",
			Action:  "Upload event, occurrence and emof files together",
			Code:    "IN001",
		},
	},
	{
		pattern: "missing table",
		msg: UserMessage{
			Message: "A required table was not supplied",
			Action:  "Upload event, occurrence and emof files together",
			Code:    "IN001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "IN002",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "IN002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV file with a header and data rows",
			Code:    "IN003",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the dataset or raise UPLOAD_MAX_FILE_SIZE",
			Code:    "IN004",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the dataset or raise UPLOAD_MAX_FILE_SIZE",
			Code:    "IN004",
		},
	},
	{
		pattern: "missing key column",
		msg: UserMessage{
			Message: "A join key column is missing",
			Action:  "Add the key column named in the message",
			Code:    "IN005",
		},
	},
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "A request parameter is invalid",
			Action:  "Check the request parameters",
			Code:    "IN006",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB002)
	// =========================================================================
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "Source table not found",
			Action:  "Check the DWC_*_TABLE settings",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Taxonomy Errors (TAX001)
	// =========================================================================
	{
		pattern: "taxonomy batch failed",
		msg: UserMessage{
			Message: "The taxonomic service could not be reached",
			Action:  "Re-run later; other checks are unaffected",
			Code:    "TAX001",
		},
	},

	// =========================================================================
	// Run Errors (RUN001-RUN003)
	// =========================================================================
	{
		pattern: "too many concurrent validation runs",
		msg: UserMessage{
			Message: "System is busy processing other validations",
			Action:  "Please wait a moment and try again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller dataset or disable taxonomy checks",
			Code:    "RUN003",
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
// If no pattern matches, a generic fallback message with code ERR000 is returned.
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// findingActions holds the suggested fix for each finding code.
var findingActions = map[Code]string{
	CodeMissingColumns:       "Add the listed Darwin Core columns to the file header",
	CodeNullValues:           "Fill the empty cells or remove the incomplete records",
	CodeInvalidLatitude:      "Use decimal degrees strictly between -90 and 90",
	CodeInvalidLongitude:     "Use decimal degrees strictly between -180 and 180",
	CodeDepthMissing:         "Add minimumDepthInMeters and maximumDepthInMeters for aquatic data",
	CodeNonNumericDepth:      "Use plain numbers in meters for depth values",
	CodeDepthIllogical:       "Swap or correct depths so the minimum does not exceed the maximum",
	CodeTaxonUnaccepted:      "Replace the name with the accepted name reported by the authority",
	CodeTaxonUnmatched:       "Check the spelling of the scientific name",
	CodeTaxonomyDegraded:     "Re-run later to complete taxonomic coverage",
	CodeTaxonomySkipped:      "Add a scientificName column or enable taxonomy checks",
	CodeCardinalityViolation: "Make keys unique on the parent table and ensure every child key has a parent",
	CodeColumnCollision:      "Make shared columns agree across tables or set LINK_COLLISION_POLICY",
	CodeLinkageSkipped:       "Add the missing key column so the tables can be linked",
	CodeDownstreamSkipped:    "Fix the linkage findings and re-run to see field-level results",
}

// ActionFor returns the suggested fix for a finding code.
func ActionFor(code Code) string {
	return findingActions[code]
}
