package manifest

import (
	"errors"
	"fmt"
)

// Sentinel kinds for manifest errors.
var (
	ErrMalformedRow  = errors.New("malformed manifest row")
	ErrMissingColumn = errors.New("missing manifest column")
)

// RowError reports a cell that could not be decoded. Row counts data rows
// from 1; the header is row 0.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%v: row %d: %v", ErrMalformedRow, e.Row, e.Err)
	}
	return fmt.Sprintf("%v: row %d column %s: %v", ErrMalformedRow, e.Row, e.Column, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *RowError) Unwrap() []error { return []error{ErrMalformedRow, e.Err} }
