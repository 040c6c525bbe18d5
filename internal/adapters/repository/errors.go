package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidLimit = errors.New("invalid query limit")
	ErrInvalidKey   = errors.New("invalid item key")
)
