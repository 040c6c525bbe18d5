// Package repository defines the ranked store interface and its backends.
package repository

import (
	"context"
	"time"
)

// Item is one stored leaderboard row. PK names the partition (DAILY#<date>
// or ALLTIME) and SK is the score-ordered sort key inside it.
type Item struct {
	PK           string `json:"pk"`
	SK           string `json:"sk"`
	Nickname     string `json:"nickname"`
	Score        int64  `json:"score"`
	Coins        int64  `json:"coins"`
	GameplayHash string `json:"gameplay_hash,omitempty"`
	GameDuration int64  `json:"game_duration,omitempty"`
	Timestamp    string `json:"timestamp"`
	Date         string `json:"date"`
	// TTL is a unix expiry; 0 means the row never expires.
	TTL int64 `json:"ttl,omitempty"`
}

// Indexed reports whether the row belongs in the (nickname, date) index.
// Only expiring daily rows are indexed.
func (it Item) Indexed() bool { return it.TTL > 0 }

// Store is an ordered key-value store partitioned by PK and ordered by SK.
// Implementations are safe for concurrent use but offer no multi-call
// transactions.
type Store interface {
	// Put inserts or overwrites the row at (PK, SK).
	Put(ctx context.Context, it Item) error
	// Delete removes the row at (pk, sk). Deleting a missing row is not an error.
	Delete(ctx context.Context, pk, sk string) error

	// QueryDesc returns up to limit rows of pk whose SK starts with prefix,
	// highest SK first.
	QueryDesc(ctx context.Context, pk, prefix string, limit int) ([]Item, error)
	// CountPrefix counts rows of pk whose SK starts with prefix.
	CountPrefix(ctx context.Context, pk, prefix string) (int, error)
	// CountAbove counts rows of pk whose SK is strictly greater than bound.
	CountAbove(ctx context.Context, pk, bound string) (int, error)

	// QueryIndex returns up to limit indexed rows for nickname on date,
	// highest score first. A limit below 1 returns every row.
	QueryIndex(ctx context.Context, nickname, date string, limit int) ([]Item, error)
	// FindByNickname scans pk and returns every row owned by nickname.
	FindByNickname(ctx context.Context, pk, nickname string) ([]Item, error)

	// Purge deletes rows whose TTL is at or before now and returns how many
	// were removed.
	Purge(ctx context.Context, now time.Time) (int, error)
}
