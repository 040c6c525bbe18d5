package repository

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

func newTestTreap(t *testing.T) Store {
	t.Helper()
	s := NewTreapStore(context.Background())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTreapStore_Contract(t *testing.T) {
	runStoreContract(t, newTestTreap)
}

func TestTreapStore_SizeAugmentation(t *testing.T) {
	ctx := context.Background()
	var seq uint64
	store := NewTreapStore(ctx, WithPrioritySource(func() uint64 {
		seq++
		return seq * 2654435761 % 1000003
	}))
	defer store.Close()

	daily := model.Daily("2025-03-14").PartitionKey()
	scores := make([]int64, 0, 500)
	for i := 0; i < 500; i++ {
		score := int64(rand.Intn(200)) * 10
		scores = append(scores, score)
		it := dailyItem(fmt.Sprintf("p%03d", i), score, time.Duration(i)*time.Millisecond)
		if err := store.Put(ctx, it); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	// remove every third row to exercise rotations on delete
	for i := 0; i < 500; i += 3 {
		it := dailyItem(fmt.Sprintf("p%03d", i), scores[i], time.Duration(i)*time.Millisecond)
		if err := store.Delete(ctx, it.PK, it.SK); err != nil {
			t.Fatalf("delete: %v", err)
		}
		scores[i] = -1
	}

	var live []int64
	for _, s := range scores {
		if s >= 0 {
			live = append(live, s)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i] > live[j] })

	if store.Len() != len(live) {
		t.Fatalf("expected %d rows, got %d", len(live), store.Len())
	}
	p := store.parts[daily]
	if nsize(p.root) != len(live) {
		t.Fatalf("root size %d does not match %d rows", nsize(p.root), len(live))
	}

	for _, probe := range []int64{0, 10, 500, 990, 1990, 2000} {
		want := 0
		for _, s := range live {
			if s > probe {
				want++
			}
		}
		got, err := store.CountAbove(ctx, daily, model.RankBound(probe))
		if err != nil {
			t.Fatalf("count above: %v", err)
		}
		if got != want {
			t.Errorf("score %d: expected %d above, got %d", probe, want, got)
		}
	}

	rows, err := store.QueryDesc(ctx, daily, model.KeyPrefix(), len(live))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for i, it := range rows {
		if it.Score != live[i] {
			t.Fatalf("row %d: expected score %d, got %d", i, live[i], it.Score)
		}
	}
}

func TestTreapStore_PrefixEnd(t *testing.T) {
	cases := map[string]string{
		"SCORE#":           "SCORE$",
		"SCORE#000000090#": "SCORE#000000090$",
		"a\xff":            "b",
		"\xff\xff":         "",
	}
	for in, want := range cases {
		if got := prefixEnd(in); got != want {
			t.Errorf("prefixEnd(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestTreapStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()

	const workers = 16
	const perWorker = 100
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				it := dailyItem(fmt.Sprintf("w%02d-%03d", w, i), int64(i*10), time.Duration(i)*time.Second)
				if err := store.Put(ctx, it); err != nil {
					t.Errorf("put: %v", err)
					return
				}
				if _, err := store.QueryDesc(ctx, it.PK, model.KeyPrefix(), 10); err != nil {
					t.Errorf("query: %v", err)
					return
				}
				if _, err := store.QueryIndex(ctx, it.Nickname, it.Date, 1); err != nil {
					t.Errorf("index: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != workers*perWorker {
		t.Errorf("expected %d rows, got %d", workers*perWorker, store.Len())
	}
}

func TestTreapStore_MetricsUpdaterStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewTreapStore(ctx, WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		_ = store.Close()
		_ = store.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after context cancellation")
	}
}

func BenchmarkTreapStore_PutAndRank(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(ctx)
	defer store.Close()
	daily := model.Daily("2025-03-14").PartitionKey()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		score := int64(rand.Intn(100_000)) * 10
		it := dailyItem(fmt.Sprintf("bench%d", i), score, time.Duration(i))
		if err := store.Put(ctx, it); err != nil {
			b.Fatal(err)
		}
		if _, err := store.CountAbove(ctx, daily, model.RankBound(score)); err != nil {
			b.Fatal(err)
		}
	}
}
