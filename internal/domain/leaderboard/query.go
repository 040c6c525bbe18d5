package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

// MaxOffset bounds pagination so that limit+offset cannot overflow.
const MaxOffset = 1_000_000

// DailyPage is one page of a day's leaderboard.
type DailyPage struct {
	Date         string
	ResetTime    time.Time
	TotalPlayers int
	Entries      []RankedEntry
}

// PlayerStats summarises a player's day.
type PlayerStats struct {
	Nickname  string
	Best      model.ScoreEntry
	Rank      int
	Attempts  int
	FirstPlay time.Time
}

// Reader serves leaderboard pages and player stats.
type Reader struct {
	store  repository.Store
	ranker *Ranker
	now    Clock
}

// NewReader builds a reader. A nil clock uses the system UTC clock.
func NewReader(store repository.Store, ranker *Ranker, now Clock) *Reader {
	if now == nil {
		now = systemClock
	}
	return &Reader{store: store, ranker: ranker, now: now}
}

// Today returns the current UTC date.
func (r *Reader) Today() string { return model.DateOf(r.now()) }

// Daily returns a page of the day's leaderboard. An empty date means today.
func (r *Reader) Daily(ctx context.Context, date string, limit, offset int) (DailyPage, error) {
	if date == "" {
		date = r.Today()
	}
	return r.page(ctx, date, limit, offset)
}

// History returns a page of an explicit day's leaderboard. Unlike Daily it
// never defaults the date.
func (r *Reader) History(ctx context.Context, date string, limit, offset int) (DailyPage, error) {
	if date == "" {
		return DailyPage{}, ErrDateRequired
	}
	return r.page(ctx, date, limit, offset)
}

func (r *Reader) page(ctx context.Context, date string, limit, offset int) (DailyPage, error) {
	if limit < 1 || offset < 0 || offset > MaxOffset {
		return DailyPage{}, ErrInvalidLimit
	}
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return DailyPage{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	pk := model.Daily(date).PartitionKey()

	items, err := r.store.QueryDesc(ctx, pk, model.KeyPrefix(), limit+offset)
	if err != nil {
		return DailyPage{}, fmt.Errorf("read daily page: %w", err)
	}
	if offset < len(items) {
		items = items[offset:]
	} else {
		items = nil
	}
	entries, err := rankItems(items, offset+1)
	if err != nil {
		return DailyPage{}, err
	}

	total, err := r.store.CountPrefix(ctx, pk, model.KeyPrefix())
	if err != nil {
		return DailyPage{}, fmt.Errorf("count daily players: %w", err)
	}
	return DailyPage{
		Date:         date,
		ResetTime:    day.AddDate(0, 0, 1),
		TotalPlayers: total,
		Entries:      entries,
	}, nil
}

// AllTime returns the top limit all-time entries.
func (r *Reader) AllTime(ctx context.Context, limit int) ([]RankedEntry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	items, err := r.store.QueryDesc(ctx, model.AllTime().PartitionKey(), model.KeyPrefix(), limit)
	if err != nil {
		return nil, fmt.Errorf("read all-time page: %w", err)
	}
	return rankItems(items, 1)
}

// PlayerStats returns the player's best, rank and attempt summary for date.
// An empty date means today.
func (r *Reader) PlayerStats(ctx context.Context, nickname, date string) (PlayerStats, error) {
	if date == "" {
		date = r.Today()
	}
	rows, err := r.store.QueryIndex(ctx, nickname, date, 0)
	if err != nil {
		return PlayerStats{}, fmt.Errorf("read player rows: %w", err)
	}
	if len(rows) == 0 {
		return PlayerStats{}, ErrPlayerNotFound
	}

	best, err := fromItem(rows[0])
	if err != nil {
		return PlayerStats{}, err
	}
	first := best.Timestamp
	for _, row := range rows[1:] {
		e, err := fromItem(row)
		if err != nil {
			return PlayerStats{}, err
		}
		if e.Timestamp.Before(first) {
			first = e.Timestamp
		}
	}

	rank, err := r.ranker.RankOf(ctx, best.Scope, best.Score)
	if err != nil {
		return PlayerStats{}, fmt.Errorf("rank player: %w", err)
	}
	return PlayerStats{
		Nickname:  nickname,
		Best:      best,
		Rank:      rank,
		Attempts:  len(rows),
		FirstPlay: first,
	}, nil
}
