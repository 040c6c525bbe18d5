package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/repository"
	service "github.com/unicitynetwork/Boxy-Run/internal/app"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/leaderboard"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/scoring"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func sub(nickname string, score int64) service.Submission {
	return service.Submission{
		Nickname:            nickname,
		Score:               score,
		Coins:               0,
		GameplayHash:        "abcd",
		GameDurationSeconds: 5,
	}
}

// brokenAllTime fails every all-time partition scan.
type brokenAllTime struct {
	repository.Store
}

func (b brokenAllTime) FindByNickname(ctx context.Context, pk, nickname string) ([]repository.Item, error) {
	return nil, errors.New("scan timeout")
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["allTimeCapacity"], ShouldEqual, 100)
			So(stats["dailyTTL"], ShouldEqual, model.DailyTTL.String())
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithAllTimeCapacity(10),
			service.WithDailyTTL(time.Hour),
			service.WithPurgeInterval(time.Second),
			service.WithLogger(logger.Named("test")),
		)
		defer svc.Stop()

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["allTimeCapacity"], ShouldEqual, 10)
			So(stats["dailyTTL"], ShouldEqual, "1h0m0s")
			So(stats["purgeInterval"], ShouldEqual, "1s")
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping it should mark it as stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(func() { svc.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a service with a fixed clock", t, func() {
		clock := &fixedClock{t: now}
		svc := service.New(service.WithClock(clock.Now))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When alice submits a plausible score", func() {
			res, err := svc.Submit(ctx, sub("alice", 100))

			Convey("Then it should be accepted at rank 1", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, leaderboard.Accepted)
				So(res.PreviousBest, ShouldEqual, 0)
				So(res.Rank, ShouldEqual, 1)
			})

			Convey("Then it should reach the all-time leaderboard", func() {
				top, err := svc.AllTimeLeaderboard(ctx, 5)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
				So(top[0].Entry.Nickname, ShouldEqual, "alice")
				So(top[0].Entry.Date, ShouldEqual, "2025-03-14")
			})

			Convey("And a lower score is rejected", func() {
				res, err := svc.Submit(ctx, sub("alice", 90))
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, leaderboard.Rejected)
				So(res.CurrentBest, ShouldEqual, 100)
			})

			Convey("And bob overtakes her", func() {
				res, err := svc.Submit(ctx, sub("bob", 150))
				So(err, ShouldBeNil)
				So(res.Rank, ShouldEqual, 1)

				stats, err := svc.PlayerStats(ctx, "alice")
				So(err, ShouldBeNil)
				So(stats.Rank, ShouldEqual, 2)

				page, err := svc.DailyLeaderboard(ctx, 10, 0)
				So(err, ShouldBeNil)
				So(page.TotalPlayers, ShouldEqual, 2)
				So(page.Entries[0].Entry.Nickname, ShouldEqual, "bob")
			})
		})

		Convey("When the play is implausible", func() {
			bad := sub("alice", 700)
			bad.GameDurationSeconds = 1
			_, err := svc.Submit(ctx, bad)

			Convey("Then the validator reason should surface and nothing be stored", func() {
				So(errors.Is(err, scoring.ErrRejected), ShouldBeTrue)
				So(scoring.Reason(err), ShouldEqual, "Game too short")
				_, err := svc.PlayerStats(ctx, "alice")
				So(errors.Is(err, leaderboard.ErrPlayerNotFound), ShouldBeTrue)
			})
		})

		Convey("When the score is not a multiple of ten", func() {
			p := sub("alice", 605)
			p.GameDurationSeconds = 2
			_, err := svc.Submit(ctx, p)

			Convey("Then the increment rule should fire first", func() {
				So(errors.Is(err, scoring.ErrInvalidIncrement), ShouldBeTrue)
			})
		})

		Convey("When the day rolls over", func() {
			_, err := svc.Submit(ctx, sub("alice", 100))
			So(err, ShouldBeNil)
			clock.t = now.Add(24 * time.Hour)

			page, err := svc.DailyLeaderboard(ctx, 10, 0)
			history, herr := svc.HistoryLeaderboard(ctx, "2025-03-14", 10, 0)

			Convey("Then today should be empty and history should keep yesterday", func() {
				So(err, ShouldBeNil)
				So(page.Date, ShouldEqual, "2025-03-15")
				So(page.TotalPlayers, ShouldEqual, 0)
				So(herr, ShouldBeNil)
				So(history.TotalPlayers, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a store whose all-time scan fails", t, func() {
		store := repository.NewTreapStore(context.Background())
		defer store.Close()
		svc := service.New(
			service.WithStore(brokenAllTime{store}),
			service.WithClock(func() time.Time { return now }),
		)
		ctx := context.Background()

		Convey("When a score is accepted for the day", func() {
			res, err := svc.Submit(ctx, sub("alice", 100))

			Convey("Then the submission should still succeed", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, leaderboard.Accepted)
				top, _ := svc.AllTimeLeaderboard(ctx, 5)
				So(top, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Purge(t *testing.T) {
	Convey("Given a service with a short daily ttl", t, func() {
		clock := &fixedClock{t: now}
		svc := service.New(
			service.WithClock(clock.Now),
			service.WithDailyTTL(time.Hour),
		)
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.Submit(ctx, sub("alice", 100))
		So(err, ShouldBeNil)

		Convey("When purging before expiry", func() {
			n, err := svc.Purge(ctx)

			Convey("Then nothing should be removed", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When purging after expiry", func() {
			clock.t = now.Add(2 * time.Hour)
			n, err := svc.Purge(ctx)

			Convey("Then the daily row should go but the all-time row should stay", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				history, _ := svc.HistoryLeaderboard(ctx, "2025-03-14", 10, 0)
				So(history.TotalPlayers, ShouldEqual, 0)
				top, _ := svc.AllTimeLeaderboard(ctx, 5)
				So(len(top), ShouldEqual, 1)
			})
		})
	})
}
