// Package loadtest drives a running leaderboard service with synthetic
// players and checks the boards it serves for consistency.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

const directoryPermission = 0750

// ErrInconsistent is returned when verification finds violations.
var ErrInconsistent = errors.New("leaderboard inconsistent")

// Run executes a complete load run and returns its statistics. The error
// wraps ErrInconsistent when the service answered but its boards disagree
// with what was accepted.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.PlaysPerPlayer < 1 {
		config.PlaysPerPlayer = 1
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.Players),
		logger.Int("playsPerPlayer", config.PlaysPerPlayer),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	players, err := generatePlays(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("play generation failed: %w", err)
	}

	best := submitPlays(ctx, config, client, players, stats)

	if err := verifyResults(ctx, config, client, best, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := savePlays(ctx, config.OutputFile, players); err != nil {
			log.Warn(ctx, "failed to save plays", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(stats.Violations) > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrInconsistent, len(stats.Violations))
	}
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, err := client.getJSON(ctx, "/health", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("health returned status %d", status)
	}
	return nil
}

// savePlays writes the generated plays to filename as a JSON array.
func savePlays(ctx context.Context, filename string, players [][]Play) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	var flat []Play
	for _, plays := range players {
		flat = append(flat, plays...)
	}
	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plays: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write plays: %w", err)
	}
	logger.Get().Info(ctx, "plays saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.PlaysSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("playsGenerated", stats.PlaysGenerated),
		logger.Int("playsSubmitted", stats.PlaysSubmitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("invalid", stats.Invalid),
		logger.Int("failed", stats.Failed),
		logger.Int("dailyRows", stats.DailyRows),
		logger.Int("allTimeRows", stats.AllTimeRows),
		logger.Int("violations", len(stats.Violations)),
		logger.Duration("duration", stats.Duration),
		logger.Any("playsPerSecond", perSecond))
}
