package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

// DefaultAllTimeCapacity bounds the all-time scope.
const DefaultAllTimeCapacity = 100

// AllTimeOutcome is the result of offering a score to the all-time scope.
type AllTimeOutcome int

const (
	Admitted AllTimeOutcome = iota + 1
	NotImproved
	NotQualified
)

func (o AllTimeOutcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case NotImproved:
		return "not_improved"
	case NotQualified:
		return "not_qualified"
	default:
		return "unknown"
	}
}

// AllTimeResult reports what Offer did. Evicted lists the players pushed
// out of the scope by an admission.
type AllTimeResult struct {
	Outcome AllTimeOutcome
	Evicted []string
	// Size is the number of rows seen in the scope after the update.
	Size int
}

// Maintainer keeps the bounded all-time scope: at most capacity rows and
// one row per player, holding that player's best.
//
// Like the daily tracker it reads then writes without a transaction.
// Concurrent admissions can leave the scope briefly above capacity; every
// admission trims the whole overflow it sees.
type Maintainer struct {
	store    repository.Store
	capacity int
}

// NewMaintainer builds a maintainer. A non-positive capacity falls back to
// DefaultAllTimeCapacity.
func NewMaintainer(store repository.Store, capacity int) *Maintainer {
	if capacity <= 0 {
		capacity = DefaultAllTimeCapacity
	}
	return &Maintainer{store: store, capacity: capacity}
}

// Capacity returns the configured bound.
func (m *Maintainer) Capacity() int { return m.capacity }

// Offer admits e into the all-time scope if it improves the player's
// all-time best and fits within the top capacity scores. The scope and
// expiry of e are ignored.
func (m *Maintainer) Offer(ctx context.Context, e model.ScoreEntry) (AllTimeResult, error) {
	scope := model.AllTime()
	pk := scope.PartitionKey()

	existing, err := m.store.FindByNickname(ctx, pk, e.Nickname)
	if err != nil {
		return AllTimeResult{}, fmt.Errorf("find all-time entry: %w", err)
	}
	if len(existing) > 0 && existing[0].Score >= e.Score {
		return AllTimeResult{Outcome: NotImproved}, nil
	}
	for _, row := range existing {
		if err := m.store.Delete(ctx, row.PK, row.SK); err != nil {
			return AllTimeResult{}, fmt.Errorf("delete all-time entry: %w", err)
		}
	}

	top, err := m.store.QueryDesc(ctx, pk, model.KeyPrefix(), m.capacity)
	if err != nil {
		return AllTimeResult{}, fmt.Errorf("read all-time top: %w", err)
	}
	if len(top) >= m.capacity && e.Score <= top[len(top)-1].Score {
		return AllTimeResult{Outcome: NotQualified, Size: len(top)}, nil
	}

	entry := e
	entry.Scope = scope
	entry.ExpiresAt = time.Time{}
	entry.GameplayHash = ""
	entry.GameDurationSeconds = 0
	if err := m.store.Put(ctx, toItem(entry)); err != nil {
		return AllTimeResult{}, fmt.Errorf("write all-time entry: %w", err)
	}

	res := AllTimeResult{Outcome: Admitted, Size: len(top) + 1}
	if len(top) < m.capacity {
		return res, nil
	}

	// Read past the bound so that overflow left by concurrent writers is
	// trimmed as well.
	after, err := m.store.QueryDesc(ctx, pk, model.KeyPrefix(), 2*m.capacity)
	if err != nil {
		return res, fmt.Errorf("read all-time overflow: %w", err)
	}
	for _, row := range after[min(m.capacity, len(after)):] {
		if err := m.store.Delete(ctx, row.PK, row.SK); err != nil {
			return res, fmt.Errorf("evict all-time entry: %w", err)
		}
		res.Evicted = append(res.Evicted, row.Nickname)
	}
	res.Size = min(len(after), m.capacity)
	return res, nil
}
