package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	service "github.com/unicitynetwork/Boxy-Run/internal/app"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/leaderboard"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/model"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/scoring"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

// ScoresDependencies defines the operations behind /scores.
type ScoresDependencies interface {
	Submit(ctx context.Context, sub service.Submission) (leaderboard.DailyResult, error)
	PlayerStats(ctx context.Context, nickname string) (leaderboard.PlayerStats, error)
}

// ScoresHandler handles score submission and player stats.
type ScoresHandler struct {
	deps      ScoresDependencies
	validator *validator.Validate
	logger    logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies, log logger.Logger) *ScoresHandler {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &ScoresHandler{deps: deps, validator: v, logger: log}
}

// submitRequest mirrors the body of POST /scores. Pointers tell a missing
// field apart from a zero value.
type submitRequest struct {
	Nickname     *string `json:"nickname" validate:"required,notblank"`
	Score        *int64  `json:"score" validate:"required,min=0,max=999999999"`
	Coins        *int64  `json:"coins" validate:"required,min=0"`
	GameplayHash string  `json:"gameplay_hash"`
	GameDuration *int64  `json:"game_duration" validate:"omitempty,min=0"`
}

func (r submitRequest) submission() service.Submission {
	sub := service.Submission{
		Nickname:     *r.Nickname,
		Score:        *r.Score,
		Coins:        *r.Coins,
		GameplayHash: r.GameplayHash,
	}
	if r.GameDuration != nil {
		sub.GameDurationSeconds = *r.GameDuration
	}
	return sub
}

type acceptedData struct {
	PreviousBest int64 `json:"previous_best"`
	NewBest      int64 `json:"new_best"`
	Rank         int   `json:"rank"`
}

type rejectedData struct {
	CurrentBest    int64 `json:"current_best"`
	SubmittedScore int64 `json:"submitted_score"`
}

type submitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *ScoresHandler) decode(ctx context.Context, body []byte) (submitRequest, error) {
	const op = "api.decode_submission"
	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, WrapKind(op, ErrBadRequest, errors.New("Invalid request format"))
	}
	if err := h.validator.StructCtx(ctx, req); err != nil {
		return req, WrapKind(op, ErrBadRequest, describeValidation(err))
	}
	return req, nil
}

// describeValidation turns the first field error into a client message.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("Invalid request format")
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if field == "gameduration" {
		field = "game_duration"
	}
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("Invalid request format: %s is required", field)
	case "min":
		return fmt.Errorf("Invalid request format: %s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Errorf("Invalid request format: %s must be at most %s", field, fe.Param())
	default:
		return fmt.Errorf("Invalid request format: %s is invalid", field)
	}
}

// HandleSubmit handles POST /scores.
func (h *ScoresHandler) HandleSubmit(ctx context.Context, req Request) Response {
	const op = "api.submit_score"
	body, err := h.decode(ctx, req.Body)
	if err != nil {
		return badRequest(detail(err))
	}
	sub := body.submission()

	res, err := h.deps.Submit(ctx, sub)
	if err != nil {
		if errors.Is(err, scoring.ErrRejected) {
			return badRequest(scoring.Reason(err))
		}
		if errors.Is(err, leaderboard.ErrInvalidEntry) {
			return badRequest("Invalid request format")
		}
		h.logger.Error(ctx, "submit failed",
			logger.String("request_id", RequestID(ctx)),
			logger.String("nickname", sub.Nickname),
			logger.Error(Wrap(op, err)),
		)
		return internalError()
	}

	if res.Status == leaderboard.Rejected {
		return jsonResponse(http.StatusOK, submitResponse{
			Status:  "rejected",
			Message: "Score not higher than daily best",
			Data:    rejectedData{CurrentBest: res.CurrentBest, SubmittedScore: sub.Score},
		})
	}
	return jsonResponse(http.StatusOK, submitResponse{
		Status:  "accepted",
		Message: "New daily high score recorded",
		Data:    acceptedData{PreviousBest: res.PreviousBest, NewBest: res.NewBest, Rank: res.Rank},
	})
}

type dailyBest struct {
	Score     int64  `json:"score"`
	Coins     int64  `json:"coins"`
	Timestamp string `json:"timestamp"`
	Rank      int    `json:"rank"`
}

type playerStatsResponse struct {
	Nickname       string    `json:"nickname"`
	DailyBest      dailyBest `json:"daily_best"`
	AttemptsToday  int       `json:"attempts_today"`
	FirstPlayToday string    `json:"first_play_today"`
}

// HandlePlayerStats handles GET /scores/{nickname}.
func (h *ScoresHandler) HandlePlayerStats(ctx context.Context, req Request) Response {
	const op = "api.player_stats"
	nickname := req.PathParams["nickname"]
	if strings.TrimSpace(nickname) == "" {
		return badRequest("Nickname is required")
	}

	stats, err := h.deps.PlayerStats(ctx, nickname)
	if err != nil {
		if errors.Is(err, leaderboard.ErrPlayerNotFound) {
			return errorResponse(http.StatusNotFound, "not_found", "Player not found")
		}
		h.logger.Error(ctx, "player stats failed",
			logger.String("request_id", RequestID(ctx)),
			logger.String("nickname", nickname),
			logger.Error(Wrap(op, err)),
		)
		return internalError()
	}
	return jsonResponse(http.StatusOK, playerStatsResponse{
		Nickname: stats.Nickname,
		DailyBest: dailyBest{
			Score:     stats.Best.Score,
			Coins:     stats.Best.Coins,
			Timestamp: model.FormatTimestamp(stats.Best.Timestamp),
			Rank:      stats.Rank,
		},
		AttemptsToday:  stats.Attempts,
		FirstPlayToday: model.FormatTimestamp(stats.FirstPlay),
	})
}
