package name

import (
	"errors"
	"fmt"
)

// Sentinel kinds for name parsing errors.
var (
	ErrMalformedName     = errors.New("malformed name")
	ErrUnknownSalutation = errors.New("unknown salutation")
)

// SalutationError reports a salutation missing from the title table.
type SalutationError struct {
	Token string
}

func (e *SalutationError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownSalutation, e.Token)
}

func (e *SalutationError) Unwrap() error { return ErrUnknownSalutation }

// ParseError describes where parsing of a raw name stopped.
type ParseError struct {
	State State
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse name %q (%s): %v", e.Input, e.State, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
