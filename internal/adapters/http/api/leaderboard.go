package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/unicitynetwork/Boxy-Run/internal/domain/leaderboard"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

// LeaderboardDependencies defines the read operations behind /leaderboard.
type LeaderboardDependencies interface {
	DailyLeaderboard(ctx context.Context, limit, offset int) (leaderboard.DailyPage, error)
	HistoryLeaderboard(ctx context.Context, date string, limit, offset int) (leaderboard.DailyPage, error)
	AllTimeLeaderboard(ctx context.Context, limit int) ([]leaderboard.RankedEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	limits Limits
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, limits Limits, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, limits: limits, logger: log}
}

type dailyRow struct {
	Rank      int    `json:"rank"`
	Nickname  string `json:"nickname"`
	Score     int64  `json:"score"`
	Coins     int64  `json:"coins"`
	Timestamp string `json:"timestamp"`
}

type allTimeRow struct {
	Rank      int    `json:"rank"`
	Nickname  string `json:"nickname"`
	Score     int64  `json:"score"`
	Coins     int64  `json:"coins"`
	Date      string `json:"date"`
	Timestamp string `json:"timestamp"`
}

type dailyResponse struct {
	Date         string     `json:"date"`
	ResetTime    string     `json:"reset_time,omitempty"`
	TotalPlayers int        `json:"total_players"`
	Leaderboard  []dailyRow `json:"leaderboard"`
}

type allTimeResponse struct {
	Leaderboard []allTimeRow `json:"leaderboard"`
}

// parseLimit reads the limit parameter, falling back to def and clamping to max.
func parseLimit(req Request, def, max int) (int, error) {
	const op = "api.parse_limit"
	raw, ok := req.Query["limit"]
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer"))
	}
	if n > max {
		n = max
	}
	return n, nil
}

func parseOffset(req Request) (int, error) {
	const op = "api.parse_offset"
	raw, ok := req.Query["offset"]
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > leaderboard.MaxOffset {
		return 0, WrapKind(op, ErrBadRequest, errors.New("offset must be a non-negative integer"))
	}
	return n, nil
}

func (h *LeaderboardHandler) page(req Request) (limit, offset int, err error) {
	if limit, err = parseLimit(req, h.limits.DailyDefault, h.limits.DailyMax); err != nil {
		return 0, 0, err
	}
	if offset, err = parseOffset(req); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func dailyRows(entries []leaderboard.RankedEntry) []dailyRow {
	rows := make([]dailyRow, 0, len(entries))
	for _, re := range entries {
		rows = append(rows, dailyRow{
			Rank:      re.Rank,
			Nickname:  re.Entry.Nickname,
			Score:     re.Entry.Score,
			Coins:     re.Entry.Coins,
			Timestamp: model.FormatTimestamp(re.Entry.Timestamp),
		})
	}
	return rows
}

// HandleDaily handles GET /leaderboard/daily?limit&offset.
func (h *LeaderboardHandler) HandleDaily(ctx context.Context, req Request) Response {
	const op = "api.daily_leaderboard"
	limit, offset, err := h.page(req)
	if err != nil {
		return badRequest(detail(err))
	}
	page, err := h.deps.DailyLeaderboard(ctx, limit, offset)
	if err != nil {
		return h.failure(ctx, op, err)
	}
	return jsonResponse(http.StatusOK, dailyResponse{
		Date:         page.Date,
		ResetTime:    page.ResetTime.UTC().Format("2006-01-02T15:04:05Z"),
		TotalPlayers: page.TotalPlayers,
		Leaderboard:  dailyRows(page.Entries),
	})
}

// HandleHistory handles GET /leaderboard/history?date&limit&offset.
func (h *LeaderboardHandler) HandleHistory(ctx context.Context, req Request) Response {
	const op = "api.history_leaderboard"
	date := req.Query["date"]
	if date == "" {
		return badRequest("Date parameter is required")
	}
	if !model.ValidDate(date) {
		return badRequest("Invalid date format. Use YYYY-MM-DD")
	}
	limit, offset, err := h.page(req)
	if err != nil {
		return badRequest(detail(err))
	}
	page, err := h.deps.HistoryLeaderboard(ctx, date, limit, offset)
	if err != nil {
		return h.failure(ctx, op, err)
	}
	return jsonResponse(http.StatusOK, dailyResponse{
		Date:         page.Date,
		TotalPlayers: page.TotalPlayers,
		Leaderboard:  dailyRows(page.Entries),
	})
}

// HandleAllTime handles GET /leaderboard/alltime?limit.
func (h *LeaderboardHandler) HandleAllTime(ctx context.Context, req Request) Response {
	const op = "api.alltime_leaderboard"
	limit, err := parseLimit(req, h.limits.AllTimeDefault, h.limits.AllTimeMax)
	if err != nil {
		return badRequest(detail(err))
	}
	entries, err := h.deps.AllTimeLeaderboard(ctx, limit)
	if err != nil {
		return h.failure(ctx, op, err)
	}
	rows := make([]allTimeRow, 0, len(entries))
	for _, re := range entries {
		rows = append(rows, allTimeRow{
			Rank:      re.Rank,
			Nickname:  re.Entry.Nickname,
			Score:     re.Entry.Score,
			Coins:     re.Entry.Coins,
			Date:      re.Entry.Date,
			Timestamp: model.FormatTimestamp(re.Entry.Timestamp),
		})
	}
	return jsonResponse(http.StatusOK, allTimeResponse{Leaderboard: rows})
}

// failure maps query errors to responses. Only unclassified errors are logged.
func (h *LeaderboardHandler) failure(ctx context.Context, op string, err error) Response {
	switch {
	case errors.Is(err, leaderboard.ErrDateRequired):
		return badRequest("Date parameter is required")
	case errors.Is(err, leaderboard.ErrInvalidDate):
		return badRequest("Invalid date format. Use YYYY-MM-DD")
	case errors.Is(err, leaderboard.ErrInvalidLimit):
		return badRequest("limit must be a positive integer")
	}
	h.logger.Error(ctx, "leaderboard query failed",
		logger.String("request_id", RequestID(ctx)),
		logger.Error(Wrap(op, err)),
	)
	return internalError()
}
