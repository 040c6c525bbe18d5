package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func dailyItem(nickname string, score int64, offset time.Duration) Item {
	ts := baseTime.Add(offset)
	return Item{
		PK:        model.Daily("2025-03-14").PartitionKey(),
		SK:        model.SortKey(score, nickname, ts),
		Nickname:  nickname,
		Score:     score,
		Coins:     score / 100,
		Timestamp: model.FormatTimestamp(ts),
		Date:      "2025-03-14",
		TTL:       ts.Add(model.DailyTTL).Unix(),
	}
}

func allTimeItem(nickname string, score int64, offset time.Duration) Item {
	it := dailyItem(nickname, score, offset)
	it.PK = model.AllTime().PartitionKey()
	it.TTL = 0
	return it
}

func nicknames(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Nickname
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// runStoreContract checks the behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	daily := model.Daily("2025-03-14").PartitionKey()

	t.Run("QueryDescOrdersByScore", func(t *testing.T) {
		s := newStore(t)
		for i, it := range []Item{
			dailyItem("carol", 50, 0),
			dailyItem("alice", 100, time.Second),
			dailyItem("bob", 90, 2*time.Second),
			dailyItem("dave", 90, 3*time.Second),
		} {
			if err := s.Put(ctx, it); err != nil {
				t.Fatalf("put %d: %v", i, err)
			}
		}

		items, err := s.QueryDesc(ctx, daily, model.KeyPrefix(), 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// equal scores fall back to descending nickname
		want := []string{"alice", "dave", "bob", "carol"}
		if got := nicknames(items); !equalStrings(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}

		items, err = s.QueryDesc(ctx, daily, model.KeyPrefix(), 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 || items[0].Nickname != "alice" {
			t.Errorf("limit not honoured: %v", nicknames(items))
		}
	})

	t.Run("QueryDescRejectsBadLimit", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.QueryDesc(ctx, daily, model.KeyPrefix(), 0); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("expected ErrInvalidLimit, got %v", err)
		}
	})

	t.Run("EmptyPartition", func(t *testing.T) {
		s := newStore(t)
		items, err := s.QueryDesc(ctx, "DAILY#2099-01-01", model.KeyPrefix(), 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("expected no rows, got %d", len(items))
		}
		n, err := s.CountPrefix(ctx, "DAILY#2099-01-01", model.KeyPrefix())
		if err != nil || n != 0 {
			t.Errorf("expected 0 rows, got %d (%v)", n, err)
		}
	})

	t.Run("CountsAndRankBound", func(t *testing.T) {
		s := newStore(t)
		for i, score := range []int64{100, 90, 90, 50} {
			it := dailyItem(string(rune('a'+i)), score, time.Duration(i)*time.Second)
			if err := s.Put(ctx, it); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		n, err := s.CountPrefix(ctx, daily, model.KeyPrefix())
		if err != nil || n != 4 {
			t.Fatalf("expected 4 rows, got %d (%v)", n, err)
		}
		n, err = s.CountPrefix(ctx, daily, model.ScorePrefix(90))
		if err != nil || n != 2 {
			t.Fatalf("expected 2 rows at 90, got %d (%v)", n, err)
		}

		cases := []struct {
			score int64
			above int
		}{
			{100, 0},
			{90, 1},
			{50, 3},
			{10, 4},
			{200, 0},
		}
		for _, c := range cases {
			got, err := s.CountAbove(ctx, daily, model.RankBound(c.score))
			if err != nil {
				t.Fatalf("count above %d: %v", c.score, err)
			}
			if got != c.above {
				t.Errorf("score %d: expected %d above, got %d", c.score, c.above, got)
			}
		}
	})

	t.Run("PutOverwritesAndDeleteIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		it := dailyItem("alice", 100, 0)
		if err := s.Put(ctx, it); err != nil {
			t.Fatalf("put: %v", err)
		}
		it.Coins = 7
		if err := s.Put(ctx, it); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		items, _ := s.QueryDesc(ctx, daily, model.KeyPrefix(), 10)
		if len(items) != 1 || items[0].Coins != 7 {
			t.Fatalf("expected one overwritten row, got %+v", items)
		}

		if err := s.Delete(ctx, it.PK, it.SK); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, it.PK, it.SK); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		n, _ := s.CountPrefix(ctx, daily, model.KeyPrefix())
		if n != 0 {
			t.Errorf("expected empty partition, got %d", n)
		}
		found, _ := s.QueryIndex(ctx, "alice", "2025-03-14", 0)
		if len(found) != 0 {
			t.Errorf("index still holds deleted row: %+v", found)
		}
	})

	t.Run("PutRejectsEmptyKey", func(t *testing.T) {
		s := newStore(t)
		if err := s.Put(ctx, Item{PK: daily}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("QueryIndexCoversDailyRowsOnly", func(t *testing.T) {
		s := newStore(t)
		for _, it := range []Item{
			dailyItem("alice", 40, 0),
			dailyItem("alice", 120, time.Second),
			dailyItem("alice", 80, 2*time.Second),
			dailyItem("bob", 500, 0),
			allTimeItem("alice", 900, 0),
		} {
			if err := s.Put(ctx, it); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		best, err := s.QueryIndex(ctx, "alice", "2025-03-14", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(best) != 1 || best[0].Score != 120 {
			t.Fatalf("expected best 120, got %+v", best)
		}

		all, err := s.QueryIndex(ctx, "alice", "2025-03-14", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 daily rows, got %d", len(all))
		}
		if all[0].Score != 120 || all[1].Score != 80 || all[2].Score != 40 {
			t.Errorf("expected score-descending rows, got %+v", all)
		}

		none, _ := s.QueryIndex(ctx, "alice", "2025-03-15", 0)
		if len(none) != 0 {
			t.Errorf("other dates must not match, got %+v", none)
		}
	})

	t.Run("FindByNickname", func(t *testing.T) {
		s := newStore(t)
		alltime := model.AllTime().PartitionKey()
		for _, it := range []Item{
			allTimeItem("alice", 100, 0),
			allTimeItem("bob", 300, 0),
			allTimeItem("alice", 200, time.Second),
		} {
			if err := s.Put(ctx, it); err != nil {
				t.Fatalf("put: %v", err)
			}
		}
		rows, err := s.FindByNickname(ctx, alltime, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 2 || rows[0].Score != 200 {
			t.Errorf("expected alice's two rows best first, got %+v", rows)
		}
		rows, _ = s.FindByNickname(ctx, alltime, "zed")
		if len(rows) != 0 {
			t.Errorf("expected no rows, got %+v", rows)
		}
	})

	t.Run("PurgeRemovesExpiredRows", func(t *testing.T) {
		s := newStore(t)
		old := dailyItem("alice", 100, 0)
		fresh := dailyItem("bob", 200, 48*time.Hour)
		keep := allTimeItem("alice", 100, 0)
		for _, it := range []Item{old, fresh, keep} {
			if err := s.Put(ctx, it); err != nil {
				t.Fatalf("put: %v", err)
			}
		}

		n, err := s.Purge(ctx, baseTime.Add(model.DailyTTL))
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 purged row, got %d", n)
		}
		rows, _ := s.QueryDesc(ctx, daily, model.KeyPrefix(), 10)
		if got := nicknames(rows); !equalStrings(got, []string{"bob"}) {
			t.Errorf("expected only bob left, got %v", got)
		}
		at, _ := s.CountPrefix(ctx, model.AllTime().PartitionKey(), model.KeyPrefix())
		if at != 1 {
			t.Errorf("all-time rows never expire, got %d", at)
		}
		idx, _ := s.QueryIndex(ctx, "alice", "2025-03-14", 0)
		if len(idx) != 0 {
			t.Errorf("purged row still indexed: %+v", idx)
		}
	})
}
