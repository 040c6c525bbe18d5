package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON performs a GET and decodes a 200 body into out. It returns the
// status code so callers can treat 404 as a result rather than a failure.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out any) (int, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// bestScores records the highest accepted score per player.
type bestScores struct {
	mu   sync.Mutex
	best map[string]int64
}

func (b *bestScores) record(nickname string, score int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.best[nickname]; !ok || score > cur {
		b.best[nickname] = score
	}
}

// submitPlays submits every player's plays. Players are spread over the
// workers but each player's plays go out in order from a single worker, so
// the daily best of a player is never raced.
func submitPlays(ctx context.Context, config *Config, client *HTTPClient, players [][]Play, stats *Stats) map[string]int64 {
	log := logger.Get()
	log.Info(ctx, "submitting plays", logger.Int("players", len(players)), logger.Int("workers", config.Workers))

	var (
		submitted, accepted, rejected, invalid, failed int64
	)
	best := &bestScores{best: make(map[string]int64, len(players))}

	work := make(chan []Play, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for plays := range work {
				for _, play := range plays {
					if ctx.Err() != nil {
						return
					}
					atomic.AddInt64(&submitted, 1)
					var resp submitResponse
					status, err := client.postJSON(ctx, "/scores", play, &resp)
					switch {
					case err != nil:
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Warn(ctx, "submit failed", logger.String("nickname", play.Nickname), logger.Error(err))
						}
					case status == http.StatusBadRequest:
						atomic.AddInt64(&invalid, 1)
					case status != http.StatusOK:
						atomic.AddInt64(&failed, 1)
					case resp.Status == "accepted":
						atomic.AddInt64(&accepted, 1)
						best.record(play.Nickname, resp.Data.NewBest)
					default:
						atomic.AddInt64(&rejected, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, plays := range players {
			select {
			case <-ctx.Done():
				return
			case work <- plays:
			}
		}
	}()

	wg.Wait()

	stats.PlaysSubmitted = int(atomic.LoadInt64(&submitted))
	stats.Accepted = int(atomic.LoadInt64(&accepted))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	stats.Invalid = int(atomic.LoadInt64(&invalid))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("invalid", stats.Invalid),
		logger.Int("failed", stats.Failed))
	return best.best
}

// fetchDaily pages through today's full leaderboard. The server may clamp
// pageSize, so the offset advances by what was actually returned.
func fetchDaily(ctx context.Context, client *HTTPClient, pageSize int) ([]Row, error) {
	var rows []Row
	for {
		var page dailyPage
		offset := len(rows)
		status, err := client.getJSON(ctx, "/leaderboard/daily", url.Values{
			"limit":  {strconv.Itoa(pageSize)},
			"offset": {strconv.Itoa(offset)},
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("daily page at offset %d: %w", offset, err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("daily page at offset %d: status %d", offset, status)
		}
		rows = append(rows, page.Leaderboard...)
		if len(page.Leaderboard) == 0 || len(rows) >= page.TotalPlayers {
			return rows, nil
		}
	}
}
