// Package scoring decides whether a submitted play is physically plausible.
package scoring

import (
	"errors"
	"fmt"
)

// Plausibility limits.
const (
	// MinDurationSeconds is the shortest game accepted.
	MinDurationSeconds = 2
	// ScoreIncrement is the granularity every score must respect.
	ScoreIncrement = 10
	// MaxPointsPerSecond models 600 points/sec plus 10% leeway.
	MaxPointsPerSecond = 660
	// PointsPerCoin bounds coins to one per this many points.
	PointsPerCoin = 100
	// MinHashLength is the shortest gameplay hash accepted.
	MinHashLength = 4
)

// ErrRejected is wrapped by every plausibility failure.
var ErrRejected = errors.New("score rejected")

// Rejection reasons, in evaluation order.
var (
	ErrGameTooShort     = fmt.Errorf("%w: Game too short", ErrRejected)
	ErrInvalidIncrement = fmt.Errorf("%w: Invalid score increment", ErrRejected)
	ErrImpossibleScore  = fmt.Errorf("%w: Score impossible for duration", ErrRejected)
	ErrTooManyCoins     = fmt.Errorf("%w: Too many coins for score", ErrRejected)
	ErrInvalidHash      = fmt.Errorf("%w: Invalid gameplay hash", ErrRejected)
)

var reasons = map[error]string{
	ErrGameTooShort:     "Game too short",
	ErrInvalidIncrement: "Invalid score increment",
	ErrImpossibleScore:  "Score impossible for duration",
	ErrTooManyCoins:     "Too many coins for score",
	ErrInvalidHash:      "Invalid gameplay hash",
}

// Play is the tuple checked by Validate.
type Play struct {
	Score           int64
	Coins           int64
	DurationSeconds int64
	GameplayHash    string
}

// Validate returns nil for a plausible play, otherwise the first failing
// rule's sentinel error.
func Validate(p Play) error {
	switch {
	case p.DurationSeconds < MinDurationSeconds:
		return ErrGameTooShort
	case p.Score%ScoreIncrement != 0:
		return ErrInvalidIncrement
	case p.Score > p.DurationSeconds*MaxPointsPerSecond:
		return ErrImpossibleScore
	case p.Coins > p.Score/PointsPerCoin:
		return ErrTooManyCoins
	case len(p.GameplayHash) < MinHashLength:
		return ErrInvalidHash
	}
	return nil
}

// Reason returns the client-facing reason for a rejection, or "" if err is
// not one of this package's sentinels.
func Reason(err error) string {
	for sentinel, reason := range reasons {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return ""
}
