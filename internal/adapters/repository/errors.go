package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("passenger not found")
	ErrInvalidPage = errors.New("invalid page")
)
