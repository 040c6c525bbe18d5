package loadtest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/http/api"
	service "github.com/unicitynetwork/Boxy-Run/internal/app"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/scoring"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer(t *testing.T, capacity int) *httptest.Server {
	svc := service.New(service.WithAllTimeCapacity(capacity))
	mux := http.NewServeMux()
	api.NewServer(api.NewDispatcher(svc), svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestGeneratePlay(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("generated plays are always plausible", prop.ForAll(
		func(nickname string) bool {
			p := generatePlay(nickname)
			return scoring.Validate(scoring.Play{
				Score:           p.Score,
				Coins:           p.Coins,
				DurationSeconds: p.GameDuration,
				GameplayHash:    p.GameplayHash,
			}) == nil
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestRun(t *testing.T) {
	Convey("Given a running leaderboard service", t, func() {
		srv := newTestServer(t, 10)
		out := filepath.Join(t.TempDir(), "plays", "run.json")
		cfg := &Config{
			BaseURL:         srv.URL,
			Players:         25,
			PlaysPerPlayer:  3,
			Workers:         4,
			Timeout:         5 * time.Second,
			AllTimeCapacity: 10,
			OutputFile:      out,
		}

		Convey("When a load run completes", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every check should pass", func() {
				So(err, ShouldBeNil)
				So(stats.Violations, ShouldBeEmpty)
				So(stats.PlaysGenerated, ShouldEqual, 75)
				So(stats.PlaysSubmitted, ShouldEqual, 75)
				So(stats.Invalid, ShouldEqual, 0)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Accepted, ShouldBeGreaterThanOrEqualTo, 25)
				So(stats.Accepted+stats.Rejected, ShouldEqual, 75)
				So(stats.DailyRows, ShouldEqual, 25)
				So(stats.AllTimeRows, ShouldEqual, 10)
			})

			Convey("And the plays should be saved", func() {
				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
			})
		})
	})

	Convey("Given no service at the target", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("When a load run starts", func() {
			_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Players: 1, Timeout: time.Second})

			Convey("Then the health check should fail", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrInconsistent), ShouldBeFalse)
			})
		})
	})
}

func TestChecks(t *testing.T) {
	Convey("Given a daily board", t, func() {
		daily := []Row{
			{Rank: 1, Nickname: "a", Score: 300},
			{Rank: 2, Nickname: "b", Score: 200},
			{Rank: 3, Nickname: "c", Score: 200},
			{Rank: 4, Nickname: "d", Score: 100},
		}

		Convey("When it is sorted", func() {
			So(checkOrder("daily", daily), ShouldBeEmpty)
		})

		Convey("When a row is out of order", func() {
			bad := append([]Row{}, daily...)
			bad[3].Score = 400
			So(len(checkOrder("daily", bad)), ShouldEqual, 1)
		})

		Convey("When accepted bests disagree with the listing", func() {
			v := checkBest(daily, map[string]int64{"a": 300, "b": 250, "z": 10})
			So(len(v), ShouldEqual, 2)
		})

		Convey("When stats ranks are checked", func() {
			var tied playerStats
			tied.Nickname = "c"
			tied.DailyBest.Score = 200
			tied.DailyBest.Rank = 2
			tied.AttemptsToday = 1
			So(checkStats(tied, daily), ShouldBeEmpty)

			tied.DailyBest.Rank = 3
			tied.AttemptsToday = 2
			So(len(checkStats(tied, daily)), ShouldEqual, 2)
		})
	})
}
