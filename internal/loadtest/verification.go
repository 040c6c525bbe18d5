package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

// Page sizes used when reading back.
const (
	dailyPageSize  = 100
	allTimePageMax = 20
)

// verifyResults reads the boards back and checks them against what was
// accepted. Violations are collected rather than returned one by one.
func verifyResults(ctx context.Context, config *Config, client *HTTPClient, best map[string]int64, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying results", logger.Int("players", len(best)))

	daily, err := fetchDaily(ctx, client, dailyPageSize)
	if err != nil {
		return err
	}
	stats.DailyRows = len(daily)

	var all allTimePage
	status, err := client.getJSON(ctx, "/leaderboard/alltime", url.Values{"limit": {strconv.Itoa(allTimePageMax)}}, &all)
	if err != nil {
		return fmt.Errorf("all-time board: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("all-time board: status %d", status)
	}
	stats.AllTimeRows = len(all.Leaderboard)

	var violations []string
	violations = append(violations, checkOrder("daily", daily)...)
	violations = append(violations, checkOrder("all-time", all.Leaderboard)...)
	violations = append(violations, checkBest(daily, best)...)
	if config.AllTimeCapacity > 0 && len(all.Leaderboard) > config.AllTimeCapacity {
		violations = append(violations, fmt.Sprintf("all-time board has %d rows, capacity %d",
			len(all.Leaderboard), config.AllTimeCapacity))
	}

	for _, nickname := range sortedKeys(best) {
		var ps playerStats
		status, err := client.getJSON(ctx, "/scores/"+url.PathEscape(nickname), nil, &ps)
		if err != nil {
			return fmt.Errorf("stats for %s: %w", nickname, err)
		}
		if status != http.StatusOK {
			violations = append(violations, fmt.Sprintf("stats for %s: status %d", nickname, status))
			continue
		}
		violations = append(violations, checkStats(ps, daily)...)
	}

	stats.Violations = violations
	for _, v := range violations {
		log.Warn(ctx, "consistency violation", logger.String("violation", v))
	}
	if config.Verbose {
		displayTop(ctx, daily)
	}
	log.Info(ctx, "verification completed", logger.Int("violations", len(violations)))
	return nil
}

// checkOrder reports any row whose score exceeds its predecessor's.
func checkOrder(board string, rows []Row) []string {
	var out []string
	for i := 1; i < len(rows); i++ {
		if rows[i].Score > rows[i-1].Score {
			out = append(out, fmt.Sprintf("%s board not sorted: row %d (%d) above row %d (%d)",
				board, i+1, rows[i].Score, i, rows[i-1].Score))
		}
	}
	return out
}

// checkBest reports players whose listed score differs from their best
// accepted submission, or who are missing or listed twice.
func checkBest(daily []Row, best map[string]int64) []string {
	var out []string
	seen := make(map[string]int, len(daily))
	for _, r := range daily {
		seen[r.Nickname]++
		want, ours := best[r.Nickname]
		if ours && r.Score != want {
			out = append(out, fmt.Sprintf("%s listed with %d, best accepted %d", r.Nickname, r.Score, want))
		}
	}
	for _, nickname := range sortedKeys(best) {
		switch n := seen[nickname]; {
		case n == 0:
			out = append(out, fmt.Sprintf("%s missing from daily board", nickname))
		case n > 1:
			out = append(out, fmt.Sprintf("%s listed %d times", nickname, n))
		}
	}
	return out
}

// checkStats verifies the stats rank is 1 + the number of strictly higher
// listed scores.
func checkStats(ps playerStats, daily []Row) []string {
	higher := 0
	for _, r := range daily {
		if r.Score > ps.DailyBest.Score {
			higher++
		}
	}
	var out []string
	if ps.DailyBest.Rank != higher+1 {
		out = append(out, fmt.Sprintf("%s ranked %d, expected %d", ps.Nickname, ps.DailyBest.Rank, higher+1))
	}
	if ps.AttemptsToday != 1 {
		out = append(out, fmt.Sprintf("%s has %d rows for today", ps.Nickname, ps.AttemptsToday))
	}
	return out
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func displayTop(ctx context.Context, daily []Row) {
	n := min(10, len(daily))
	for _, r := range daily[:n] {
		logger.Get().Info(ctx, "top player",
			logger.Int("rank", r.Rank),
			logger.String("nickname", r.Nickname),
			logger.Int64("score", r.Score))
	}
}
