package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrDateRequired   = errors.New("date is required")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidLimit   = errors.New("invalid limit or offset")
	ErrInvalidEntry   = errors.New("invalid entry")
)
