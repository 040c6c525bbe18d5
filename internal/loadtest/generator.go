package loadtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/unicitynetwork/Boxy-Run/internal/domain/scoring"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

// Plausible play ranges.
const (
	minDuration = scoring.MinDurationSeconds
	maxDuration = 300
	hashBytes   = 8
)

// randInt returns a uniform value in [0, n) using crypto/rand.
func randInt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// generatePlays creates PlaysPerPlayer plays for each of Players players
// with unique nicknames. Plays of one player are contiguous.
func generatePlays(ctx context.Context, config *Config, stats *Stats) ([][]Play, error) {
	logger.Get().Info(ctx, "generating plays",
		logger.Int("players", config.Players),
		logger.Int("playsPerPlayer", config.PlaysPerPlayer))

	players := make([][]Play, config.Players)
	for i := range players {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		nickname := "player-" + uuid.NewString()[:8]
		plays := make([]Play, config.PlaysPerPlayer)
		for j := range plays {
			plays[j] = generatePlay(nickname)
		}
		players[i] = plays
		stats.PlaysGenerated += len(plays)
	}

	logger.Get().Info(ctx, "generated plays", logger.Int("count", stats.PlaysGenerated))
	return players, nil
}

// generatePlay returns a play that passes every plausibility rule.
func generatePlay(nickname string) Play {
	duration := minDuration + randInt(maxDuration-minDuration+1)
	maxSteps := duration * scoring.MaxPointsPerSecond / scoring.ScoreIncrement
	score := randInt(maxSteps+1) * scoring.ScoreIncrement
	coins := randInt(score/scoring.PointsPerCoin + 1)

	buf := make([]byte, hashBytes)
	_, _ = rand.Read(buf)

	return Play{
		Nickname:     nickname,
		Score:        score,
		Coins:        coins,
		GameplayHash: hex.EncodeToString(buf),
		GameDuration: duration,
	}
}
