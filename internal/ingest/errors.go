package ingest

import (
	"errors"
	"fmt"
)

// Common ingestion errors
var (
	// ErrUnsupportedFormat is returned when the file extension is not one of
	// the delimited-text or spreadsheet formats the parser reads.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrParseFailure is returned when the file is structurally broken.
	// No rows are returned alongside it.
	ErrParseFailure = errors.New("file could not be parsed")

	// ErrInvalidEncoding is returned when delimited text is neither UTF-8 nor EUC-KR.
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrUnknownKind is returned when the declared document kind is not invoice or deposit.
	ErrUnknownKind = errors.New("unknown document kind")
)

// ParseError wraps errors with additional context about a file that failed to parse.
type ParseError struct {
	// Op is the operation that failed (e.g., "Parse", "openSpreadsheet").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string

	// Row is the 1-based source row being read when the failure happened, 0 if unknown.
	Row int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("ingest: %s failed", e.Op)
	if e.Row > 0 {
		msg = fmt.Sprintf("%s at row %d", msg, e.Row)
	}
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Details)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ParseError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewParseError creates a new ParseError with the specified operation and underlying error.
func NewParseError(op string, err error, details string) *ParseError {
	return &ParseError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// RowError describes a data row that was read but rejected by validation.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d, field '%s': %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}
