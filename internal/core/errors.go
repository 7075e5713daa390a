package core

import (
	"errors"
	"fmt"
)

// Sentinels for every failure class surfaced to the user. Typed errors
// below wrap them so callers can use errors.Is or errors.As.
var (
	ErrEmptyInput        = errors.New("empty input")
	ErrUnsupportedFormat = errors.New("format rejected")
	ErrDecodeFailed      = errors.New("decode failed")
	ErrSubprocessFailed  = errors.New("subprocess failed")
	ErrOriginRejected    = errors.New("origin rejected")
	ErrNoBatch           = errors.New("no batch loaded")
	ErrFileTooLarge      = errors.New("file too large")
)

// UnsupportedFormatError reports a file whose extension is not accepted.
type UnsupportedFormatError struct {
	FileName string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("format rejected: %q is not .xlsx, .xls or .csv", e.FileName)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// DecodeError reports that the spreadsheet library could not parse a buffer.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed (%s): %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecodeFailed, e.Err} }

// SubprocessError reports a failed or non-zero exit of the text processor.
// Stderr holds the collected error stream, or a generic message.
type SubprocessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *SubprocessError) Error() string {
	return "subprocess failed: " + e.Stderr
}

func (e *SubprocessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubprocessFailed}
	}
	return []error{ErrSubprocessFailed, e.Err}
}

// OriginValidationError reports a process-boundary message whose sender
// is missing or not the application's own UI.
type OriginValidationError struct {
	Origin string
	Reason string
}

func (e *OriginValidationError) Error() string {
	if e.Origin == "" {
		return "origin rejected: " + e.Reason
	}
	return fmt.Sprintf("origin rejected: %s (%s)", e.Reason, e.Origin)
}

func (e *OriginValidationError) Unwrap() error { return ErrOriginRejected }
