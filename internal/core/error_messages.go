// error_messages.go maps errors to user-facing messages.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Every failure is reported to the user as one message; none is
// retried and none stops the application.
//
// # Input Errors (INP001-INP099)
//
//	INP001 - Empty input: There is no text to process
//	         Action: Please enter some text to process
//	         Sentinel: ErrEmptyInput
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Format rejected: The file type is not supported
//	          Action: Please upload a valid Excel file (.xlsx, .xls) or CSV file
//	          Sentinel: ErrUnsupportedFormat
//
//	FILE002 - Decode failed: The file could not be read
//	          Action: Please check the file format
//	          Sentinel: ErrDecodeFailed
//
//	FILE003 - File too large: File exceeds maximum size limit
//	          Action: Split the file into smaller chunks
//	          Sentinel: ErrFileTooLarge
//	          Patterns: "request body too large"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a file to upload
//	          Patterns: "no file provided"
//
// # Batch Errors (BAT001-BAT099)
//
//	BAT001 - No data: There is no processed data yet
//	         Action: Process text or upload a file first
//	         Sentinel: ErrNoBatch
//
// # Processing Errors (PROC001-PROC099)
//
//	PROC001 - Text processor failed: The external text processor reported an error
//	          Action: Check the processor output and try again
//	          Sentinel: ErrSubprocessFailed
//
// # Capacity Errors (BUSY001)
//
//	BUSY001 - Busy: Too many files or texts are being processed
//	          Action: Please try again in a moment
//	          Sentinel: ErrBusy
//
// # Security Errors (SEC001-SEC099)
//
//	SEC001 - Origin rejected: The request did not come from this application
//	         Action: Reload the application window
//	         Sentinel: ErrOriginRejected
//
// # Request Errors (REQ001, UPL004-UPL005, RATE001)
//
//	REQ001 - Invalid request            Patterns: "invalid request"
//	UPL004 - Request cancelled          Patterns: "context canceled"
//	UPL005 - Request timeout            Patterns: "context deadline exceeded"
//	RATE001 - Too many requests         Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Matching
//
// Sentinels are checked first with errors.Is. Remaining errors are matched
// case-insensitively with strings.Contains; the first matching pattern wins.

package core

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

var (
	msgEmptyInput = UserMessage{
		Message: "There is no text to process",
		Action:  "Please enter some text to process",
		Code:    "INP001",
	}
	msgFormatRejected = UserMessage{
		Message: "The file type is not supported",
		Action:  "Please upload a valid Excel file (.xlsx, .xls) or CSV file",
		Code:    "FILE001",
	}
	msgDecodeFailed = UserMessage{
		Message: "Error processing file",
		Action:  "Please check the file format",
		Code:    "FILE002",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE003",
	}
	msgNoBatch = UserMessage{
		Message: "There is no processed data yet",
		Action:  "Process text or upload a file first",
		Code:    "BAT001",
	}
	msgSubprocess = UserMessage{
		Message: "The text processor reported an error",
		Action:  "Check the processor output and try again",
		Code:    "PROC001",
	}
	msgBusy = UserMessage{
		Message: "Too many files or texts are being processed",
		Action:  "Please try again in a moment",
		Code:    "BUSY001",
	}
	msgOrigin = UserMessage{
		Message: "The request did not come from this application",
		Action:  "Reload the application window",
		Code:    "SEC001",
	}
)

// sentinelMessages maps wrapped sentinels to messages, checked in order.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrEmptyInput, msgEmptyInput},
	{ErrUnsupportedFormat, msgFormatRejected},
	{ErrDecodeFailed, msgDecodeFailed},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrNoBatch, msgNoBatch},
	{ErrSubprocessFailed, msgSubprocess},
	{ErrOriginRejected, msgOrigin},
	{ErrBusy, msgBusy},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages for errors that carry no sentinel. More specific patterns go
// first.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg:     msgFileTooLarge,
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request was malformed",
			Action:  "Reload the application and try again",
			Code:    "REQ001",
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
			Action:  "Please try again",
			Code:    "UPL005",
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

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := svc.ProcessTextBatch(ctx, "   ")
//	msg := MapError(err)
//	// msg.Code == "INP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
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
