// Package service wires the leaderboard components together and provides
// the operations required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/leaderboard"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/scoring"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
	"github.com/unicitynetwork/Boxy-Run/pkg/metrics"
)

const defaultPurgeInterval = time.Minute

// Submission is a score submitted by a player.
type Submission struct {
	Nickname            string
	Score               int64
	Coins               int64
	GameplayHash        string
	GameDurationSeconds int64
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	closers    []func() error
	ranker     *leaderboard.Ranker
	tracker    *leaderboard.Tracker
	maintainer *leaderboard.Maintainer
	reader     *leaderboard.Reader

	// Configuration
	allTimeCapacity int
	dailyTTL        time.Duration
	purgeInterval   time.Duration
	now             leaderboard.Clock

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the ranked store. Without it the service owns an in-memory
// treap store and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock used to timestamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAllTimeCapacity bounds the all-time leaderboard.
func WithAllTimeCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.allTimeCapacity = n
		}
	}
}

// WithDailyTTL sets how long daily rows live.
func WithDailyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.dailyTTL = ttl
		}
	}
}

// WithPurgeInterval sets how often expired daily rows are purged.
func WithPurgeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.purgeInterval = d
		}
	}
}

// New constructs a Service. The returned service answers requests right
// away; Start only launches background maintenance.
func New(opts ...Option) *Service {
	s := &Service{
		allTimeCapacity: leaderboard.DefaultAllTimeCapacity,
		dailyTTL:        model.DailyTTL,
		purgeInterval:   defaultPurgeInterval,
		now:             func() time.Time { return time.Now().UTC() },
		stopCh:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.store == nil {
		s.store = repository.NewTreapStore(context.Background())
		s.ownsStore = true
	}
	s.ranker = leaderboard.NewRanker(s.store)
	s.tracker = leaderboard.NewTracker(s.store, s.ranker, s.dailyTTL)
	s.maintainer = leaderboard.NewMaintainer(s.store, s.allTimeCapacity)
	s.reader = leaderboard.NewReader(s.store, s.ranker, s.now)
	return s
}

// Start launches the purge loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.purgeLoop(ctx, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("allTimeCapacity", s.allTimeCapacity),
		logger.Duration("dailyTTL", s.dailyTTL),
		logger.Duration("purgeInterval", s.purgeInterval),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Info(context.Background(), "stopping leaderboard service...")
		close(s.stopCh)
		s.wg.Wait()
		s.started = false
	}

	if s.ownsStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		s.ownsStore = false
	}
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn(context.Background(), "close resource failed", logger.Error(err))
		}
	}
	s.closers = nil
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) purgeLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.Purge(ctx); err != nil {
				s.logger.Error(ctx, "purge failed", logger.Error(err))
			}
		}
	}
}

// Purge removes expired daily rows.
func (s *Service) Purge(ctx context.Context) (int, error) {
	n, err := s.store.Purge(ctx, s.now())
	if err != nil {
		metrics.RecordErrorByComponent("service", "purge")
		return n, err
	}
	if n > 0 {
		metrics.RecordPurged(n)
		s.logger.Debug(ctx, "purged expired daily rows", logger.Int("rows", n))
	}
	return n, nil
}

// Submit validates a play, records it as the player's daily best when it
// improves on it, and offers accepted scores to the all-time leaderboard.
//
// A failed plausibility check returns an error wrapping scoring.ErrRejected.
// All-time maintenance failures are logged and never fail the submission.
func (s *Service) Submit(ctx context.Context, sub Submission) (leaderboard.DailyResult, error) {
	err := scoring.Validate(scoring.Play{
		Score:           sub.Score,
		Coins:           sub.Coins,
		DurationSeconds: sub.GameDurationSeconds,
		GameplayHash:    sub.GameplayHash,
	})
	if err != nil {
		metrics.RecordSubmission("invalid")
		metrics.RecordValidationRejection(scoring.Reason(err))
		s.logger.Debug(ctx, "implausible score",
			logger.String("nickname", sub.Nickname),
			logger.Int64("score", sub.Score),
			logger.Error(err),
		)
		return leaderboard.DailyResult{}, err
	}

	res, err := s.tracker.Submit(ctx, leaderboard.Candidate{
		Nickname:            sub.Nickname,
		Score:               sub.Score,
		Coins:               sub.Coins,
		GameplayHash:        sub.GameplayHash,
		GameDurationSeconds: sub.GameDurationSeconds,
		Timestamp:           s.now(),
	})
	if err != nil {
		metrics.RecordSubmission("error")
		if !errors.Is(err, leaderboard.ErrInvalidEntry) {
			metrics.RecordErrorByComponent("service", "daily_submit")
		}
		return leaderboard.DailyResult{}, fmt.Errorf("submit daily score: %w", err)
	}
	metrics.RecordSubmission(res.Status.String())
	if res.Status != leaderboard.Accepted {
		return res, nil
	}

	s.offerAllTime(ctx, res.Entry)
	return res, nil
}

func (s *Service) offerAllTime(ctx context.Context, e model.ScoreEntry) {
	res, err := s.maintainer.Offer(ctx, e)
	if err != nil {
		metrics.RecordAllTimeUpdate("failed")
		metrics.RecordErrorByComponent("service", "alltime_update")
		s.logger.Error(ctx, "all-time update failed",
			logger.String("nickname", e.Nickname),
			logger.Int64("score", e.Score),
			logger.Error(err),
		)
		return
	}

	metrics.RecordAllTimeUpdate(res.Outcome.String())
	if len(res.Evicted) > 0 {
		metrics.RecordAllTimeUpdate("evicted")
		s.logger.Debug(ctx, "evicted from all-time leaderboard",
			logger.Any("nicknames", res.Evicted),
		)
	}
	if res.Outcome != leaderboard.NotImproved {
		metrics.UpdateAllTimeSize(res.Size)
	}
}

// DailyLeaderboard returns a page of today's leaderboard.
func (s *Service) DailyLeaderboard(ctx context.Context, limit, offset int) (leaderboard.DailyPage, error) {
	return s.reader.Daily(ctx, "", limit, offset)
}

// HistoryLeaderboard returns a page of the leaderboard of an explicit date.
func (s *Service) HistoryLeaderboard(ctx context.Context, date string, limit, offset int) (leaderboard.DailyPage, error) {
	return s.reader.History(ctx, date, limit, offset)
}

// AllTimeLeaderboard returns the top of the all-time leaderboard.
func (s *Service) AllTimeLeaderboard(ctx context.Context, limit int) ([]leaderboard.RankedEntry, error) {
	return s.reader.AllTime(ctx, limit)
}

// PlayerStats returns today's statistics for a player.
func (s *Service) PlayerStats(ctx context.Context, nickname string) (leaderboard.PlayerStats, error) {
	return s.reader.PlayerStats(ctx, nickname, "")
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"allTimeCapacity": s.allTimeCapacity,
		"dailyTTL":        s.dailyTTL.String(),
		"purgeInterval":   s.purgeInterval.String(),
	}
	if ts, ok := s.store.(*repository.TreapStore); ok {
		rows := ts.Len()
		stats["storeRows"] = rows
		metrics.UpdateStoreRows("memory", rows)
	}
	return stats
}
