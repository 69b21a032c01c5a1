package cabin

import (
	"errors"
	"fmt"
)

// Sentinel kinds for cabin parsing errors.
var (
	ErrMalformedCabinToken = errors.New("malformed cabin token")
)

// TokenError reports the cabin token whose room number could not be parsed.
type TokenError struct {
	Token string
	Err   error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("cabin token %q: %v", e.Token, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }
