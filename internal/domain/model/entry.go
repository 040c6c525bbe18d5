// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Layouts and limits shared by every layer that builds or reads keys.
const (
	// DateLayout is the calendar-day format used for daily scopes.
	DateLayout = "2006-01-02"
	// TimestampLayout keeps microsecond precision at a fixed width so that
	// sort keys embedding it stay comparable byte by byte.
	TimestampLayout = "2006-01-02T15:04:05.000000Z"
	// DailyTTL is how long a daily row is retained after creation.
	DailyTTL = 7 * 24 * time.Hour
	// MaxScore is the largest score representable in the 9-digit key field.
	MaxScore = 999_999_999

	dailyPartitionPrefix = "DAILY#"
	allTimePartition     = "ALLTIME"
	scoreKeyPrefix       = "SCORE#"
	// tieCeiling sorts right after the '#' separator, so every key of a
	// given score is strictly below scorePrefix(score)+tieCeiling.
	tieCeiling = "$"
)

// ScopeKind distinguishes the two leaderboard partitions.
type ScopeKind int

const (
	ScopeDaily ScopeKind = iota + 1
	ScopeAllTime
)

// Scope is a partition of the leaderboard: one calendar day or all time.
type Scope struct {
	Kind ScopeKind
	Date string // set for daily scopes only
}

// Daily returns the scope for a calendar day (YYYY-MM-DD).
func Daily(date string) Scope { return Scope{Kind: ScopeDaily, Date: date} }

// AllTime returns the unbounded all-time scope.
func AllTime() Scope { return Scope{Kind: ScopeAllTime} }

// PartitionKey is the store partition holding the scope's rows.
func (s Scope) PartitionKey() string {
	if s.Kind == ScopeAllTime {
		return allTimePartition
	}
	return dailyPartitionPrefix + s.Date
}

func (s Scope) String() string { return s.PartitionKey() }

// ScoreEntry is one player's score inside one scope.
type ScoreEntry struct {
	Nickname            string
	Score               int64
	Coins               int64
	GameplayHash        string
	GameDurationSeconds int64
	Timestamp           time.Time
	Date                string
	Scope               Scope
	// ExpiresAt is zero for rows that never expire.
	ExpiresAt time.Time
}

// SortKey returns the composite key ordering the entry within its scope.
func (e ScoreEntry) SortKey() string {
	return SortKey(e.Score, e.Nickname, e.Timestamp)
}

// SortKey builds SCORE#<score:09>#<nickname>#<timestamp>. Descending
// byte order of these keys puts higher scores first.
func SortKey(score int64, nickname string, ts time.Time) string {
	return fmt.Sprintf("%s%s#%s", ScorePrefix(score), nickname, FormatTimestamp(ts))
}

// KeyPrefix is the common prefix of every score key in a partition.
func KeyPrefix() string { return scoreKeyPrefix }

// ScorePrefix is the key prefix shared by all rows holding score.
func ScorePrefix(score int64) string {
	return fmt.Sprintf("%s%09d#", scoreKeyPrefix, score)
}

// RankBound is the smallest key greater than every key holding score, so
// counting keys above it counts exactly the strictly higher scores.
func RankBound(score int64) string {
	return fmt.Sprintf("%s%09d%s", scoreKeyPrefix, score, tieCeiling)
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// DateOf returns the UTC calendar day of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ValidDate reports whether s is a real YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
