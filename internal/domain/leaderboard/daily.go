// Package leaderboard keeps per-day bests and the all-time top scores on a
// ranked store, and serves the read side.
package leaderboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

// DailyStatus is the outcome of a daily submission.
type DailyStatus int

const (
	Accepted DailyStatus = iota + 1
	Rejected
)

func (s DailyStatus) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Candidate is a validated play waiting to be recorded.
type Candidate struct {
	Nickname            string
	Score               int64
	Coins               int64
	GameplayHash        string
	GameDurationSeconds int64
	// Timestamp is the submission instant; its UTC day selects the scope.
	Timestamp time.Time
}

// DailyResult reports what Submit did.
//
// On Accepted, PreviousBest is 0 for a first play, NewBest is the candidate
// score and Rank its position in the day. On Rejected, CurrentBest is the
// stored score that was not beaten.
type DailyResult struct {
	Status       DailyStatus
	PreviousBest int64
	NewBest      int64
	CurrentBest  int64
	Rank         int
	Entry        model.ScoreEntry
}

// Tracker keeps one row per player per day, holding the day's best.
//
// Submit is a read-then-write sequence with no store transaction. Two
// concurrent improving submissions by the same player can both be written;
// the next accepted submission for that day removes every row it finds.
type Tracker struct {
	store  repository.Store
	ranker *Ranker
	ttl    time.Duration
}

// NewTracker builds a tracker. A non-positive ttl falls back to model.DailyTTL.
func NewTracker(store repository.Store, ranker *Ranker, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = model.DailyTTL
	}
	return &Tracker{store: store, ranker: ranker, ttl: ttl}
}

// Submit records c if it beats the player's best for its day.
func (t *Tracker) Submit(ctx context.Context, c Candidate) (DailyResult, error) {
	if strings.TrimSpace(c.Nickname) == "" || c.Score < 0 || c.Score > model.MaxScore {
		return DailyResult{}, ErrInvalidEntry
	}
	ts := c.Timestamp.UTC()
	date := model.DateOf(ts)

	best, err := t.store.QueryIndex(ctx, c.Nickname, date, 1)
	if err != nil {
		return DailyResult{}, fmt.Errorf("read daily best: %w", err)
	}
	var previous int64
	if len(best) > 0 {
		previous = best[0].Score
		if previous >= c.Score {
			return DailyResult{Status: Rejected, CurrentBest: previous}, nil
		}
	}

	if err := t.clear(ctx, c.Nickname, date); err != nil {
		return DailyResult{}, err
	}

	entry := model.ScoreEntry{
		Nickname:            c.Nickname,
		Score:               c.Score,
		Coins:               c.Coins,
		GameplayHash:        c.GameplayHash,
		GameDurationSeconds: c.GameDurationSeconds,
		Timestamp:           ts,
		Date:                date,
		Scope:               model.Daily(date),
		ExpiresAt:           ts.Add(t.ttl),
	}
	if err := t.store.Put(ctx, toItem(entry)); err != nil {
		return DailyResult{}, fmt.Errorf("write daily best: %w", err)
	}

	rank, err := t.ranker.RankOf(ctx, entry.Scope, entry.Score)
	if err != nil {
		return DailyResult{}, fmt.Errorf("rank daily best: %w", err)
	}
	return DailyResult{
		Status:       Accepted,
		PreviousBest: previous,
		NewBest:      entry.Score,
		Rank:         rank,
		Entry:        entry,
	}, nil
}

// clear deletes every indexed row of the player on date, duplicates included.
func (t *Tracker) clear(ctx context.Context, nickname, date string) error {
	rows, err := t.store.QueryIndex(ctx, nickname, date, 0)
	if err != nil {
		return fmt.Errorf("list daily rows: %w", err)
	}
	for _, row := range rows {
		if err := t.store.Delete(ctx, row.PK, row.SK); err != nil {
			return fmt.Errorf("delete stale daily row: %w", err)
		}
	}
	return nil
}
