package leaderboard

import (
	"context"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
)

// Ranker computes competition ranks: every entry with the same score shares
// the rank of the first of them.
type Ranker struct {
	store repository.Store
}

func NewRanker(store repository.Store) *Ranker {
	return &Ranker{store: store}
}

// RankOf returns 1 + the number of entries in scope with a strictly higher
// score. It holds for scores that are not stored as well.
func (r *Ranker) RankOf(ctx context.Context, scope model.Scope, score int64) (int, error) {
	above, err := r.store.CountAbove(ctx, scope.PartitionKey(), model.RankBound(score))
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}
