package leaderboard

import (
	"fmt"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

// Clock returns the current instant. Tests inject a fixed one.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func toItem(e model.ScoreEntry) repository.Item {
	it := repository.Item{
		PK:        e.Scope.PartitionKey(),
		SK:        e.SortKey(),
		Nickname:  e.Nickname,
		Score:     e.Score,
		Coins:     e.Coins,
		Timestamp: model.FormatTimestamp(e.Timestamp),
		Date:      e.Date,
	}
	if e.Scope.Kind == model.ScopeDaily {
		it.GameplayHash = e.GameplayHash
		it.GameDuration = e.GameDurationSeconds
	}
	if !e.ExpiresAt.IsZero() {
		it.TTL = e.ExpiresAt.Unix()
	}
	return it
}

func fromItem(it repository.Item) (model.ScoreEntry, error) {
	ts, err := model.ParseTimestamp(it.Timestamp)
	if err != nil {
		return model.ScoreEntry{}, fmt.Errorf("row %s/%s: %w", it.PK, it.SK, err)
	}
	scope := model.AllTime()
	if it.PK != scope.PartitionKey() {
		scope = model.Daily(it.Date)
	}
	e := model.ScoreEntry{
		Nickname:            it.Nickname,
		Score:               it.Score,
		Coins:               it.Coins,
		GameplayHash:        it.GameplayHash,
		GameDurationSeconds: it.GameDuration,
		Timestamp:           ts,
		Date:                it.Date,
		Scope:               scope,
	}
	if it.TTL > 0 {
		e.ExpiresAt = time.Unix(it.TTL, 0).UTC()
	}
	return e, nil
}

// RankedEntry is an entry at its 1-based leaderboard position.
type RankedEntry struct {
	Rank  int
	Entry model.ScoreEntry
}

func rankItems(items []repository.Item, firstRank int) ([]RankedEntry, error) {
	out := make([]RankedEntry, 0, len(items))
	for i, it := range items {
		e, err := fromItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, RankedEntry{Rank: firstRank + i, Entry: e})
	}
	return out, nil
}
