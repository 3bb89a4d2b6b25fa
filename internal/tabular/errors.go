package tabular

import (
	"errors"
	"fmt"
)

// ErrMalformedFile marks stream-level failures that abort a whole import.
var ErrMalformedFile = errors.New("malformed catalog file")

var (
	// ErrNoHeader is returned when a file with content never presents a column header row.
	ErrNoHeader = fmt.Errorf("%w: no column header row found", ErrMalformedFile)

	// ErrEmptyFile is returned when a file contains no non-blank rows.
	ErrEmptyFile = fmt.Errorf("%w: file is empty", ErrMalformedFile)

	// ErrUnknownEncoding is returned by NewParser for unsupported encodings.
	ErrUnknownEncoding = errors.New("unsupported encoding")
)

// RowError describes why a single row was skipped. It never aborts a parse.
type RowError struct {
	Line   int
	Code   string
	Reason string
}

func (e *RowError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("line %d (%s): %s", e.Line, e.Code, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}
