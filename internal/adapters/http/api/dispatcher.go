// Package api routes leaderboard requests to the service and renders JSON
// responses, independent of the transport that carries them.
package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	service "github.com/unicitynetwork/Boxy-Run/internal/app"
	"github.com/unicitynetwork/Boxy-Run/internal/domain/leaderboard"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
	"github.com/unicitynetwork/Boxy-Run/pkg/metrics"
)

// RequestIDHeader carries the per-request UUID.
const RequestIDHeader = "X-Request-Id"

// Dependencies required by the handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Submit(ctx context.Context, sub service.Submission) (leaderboard.DailyResult, error)
	DailyLeaderboard(ctx context.Context, limit, offset int) (leaderboard.DailyPage, error)
	HistoryLeaderboard(ctx context.Context, date string, limit, offset int) (leaderboard.DailyPage, error)
	AllTimeLeaderboard(ctx context.Context, limit int) ([]leaderboard.RankedEntry, error)
	PlayerStats(ctx context.Context, nickname string) (leaderboard.PlayerStats, error)
	Now() time.Time
}

// Limits are the page size defaults and caps.
type Limits struct {
	DailyDefault   int
	DailyMax       int
	AllTimeDefault int
	AllTimeMax     int
}

// DefaultLimits returns the stock page sizes.
func DefaultLimits() Limits {
	return Limits{DailyDefault: 10, DailyMax: 100, AllTimeDefault: 5, AllTimeMax: 20}
}

type requestIDKey struct{}

// RequestID returns the ID of the request being dispatched, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type route struct {
	method string // empty matches any method
	path   string
	// param names the trailing path segment captured after path, if any.
	param   string
	name    string
	handler HandlerFunc
}

// Dispatcher matches requests against the route table and decorates every
// response with CORS headers and a request ID. It never lets a handler
// failure escape: panics become a generic 500.
type Dispatcher struct {
	routes        []route
	allowedOrigin string
	limits        Limits
	logger        logger.Logger
	newID         func() string
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithAllowedOrigin sets Access-Control-Allow-Origin.
func WithAllowedOrigin(origin string) Option {
	return func(d *Dispatcher) {
		if origin != "" {
			d.allowedOrigin = origin
		}
	}
}

// WithLimits sets page size defaults and caps. Non-positive fields keep
// their defaults.
func WithLimits(l Limits) Option {
	return func(d *Dispatcher) {
		if l.DailyDefault > 0 {
			d.limits.DailyDefault = l.DailyDefault
		}
		if l.DailyMax > 0 {
			d.limits.DailyMax = l.DailyMax
		}
		if l.AllTimeDefault > 0 {
			d.limits.AllTimeDefault = l.AllTimeDefault
		}
		if l.AllTimeMax > 0 {
			d.limits.AllTimeMax = l.AllTimeMax
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRequestIDs replaces the request ID generator.
func WithRequestIDs(gen func() string) Option {
	return func(d *Dispatcher) {
		if gen != nil {
			d.newID = gen
		}
	}
}

// NewDispatcher builds the route table over deps.
func NewDispatcher(deps Dependencies, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		allowedOrigin: "*",
		limits:        DefaultLimits(),
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Named("api")
	}

	health := NewHealthHandler(deps)
	scores := NewScoresHandler(deps, d.logger)
	boards := NewLeaderboardHandler(deps, d.limits, d.logger)

	d.routes = []route{
		{path: "/health", name: "health", handler: health.HandleHealth},
		{method: http.MethodPost, path: "/scores", name: "scores", handler: scores.HandleSubmit},
		{method: http.MethodGet, path: "/leaderboard/daily", name: "leaderboard_daily", handler: boards.HandleDaily},
		{method: http.MethodGet, path: "/leaderboard/alltime", name: "leaderboard_alltime", handler: boards.HandleAllTime},
		{method: http.MethodGet, path: "/leaderboard/history", name: "leaderboard_history", handler: boards.HandleHistory},
		{method: http.MethodGet, path: "/scores/", param: "nickname", name: "player_stats", handler: scores.HandlePlayerStats},
	}
	for i := range d.routes {
		d.routes[i].handler = MetricsMiddleware(d.routes[i].handler, d.routes[i].name)
	}
	return d
}

// Handle dispatches one request.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (resp Response) {
	requestID := req.Header(RequestIDHeader)
	if requestID == "" {
		requestID = d.newID()
	}
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	log := d.logger.With(logger.String("request_id", requestID))

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("api", "panic")
			log.Error(ctx, "handler panic",
				logger.Any("panic", fmt.Sprint(r)),
				logger.String("stack", string(debug.Stack())),
			)
			resp = internalError()
		}
		resp = d.decorate(resp, requestID)
	}()

	log.Debug(ctx, "request",
		logger.String("method", req.Method),
		logger.String("path", req.Path),
	)

	if req.Method == http.MethodOptions {
		return jsonResponse(http.StatusOK, messageBody{Message: "OK"})
	}

	rt, params, ok := d.match(req)
	if !ok {
		return errorResponse(http.StatusNotFound, "not_found", "Not Found")
	}
	if len(params) > 0 {
		merged := make(map[string]string, len(req.PathParams)+len(params))
		for k, v := range params {
			merged[k] = v
		}
		for k, v := range req.PathParams {
			if v != "" {
				merged[k] = v
			}
		}
		req.PathParams = merged
	}
	return rt.handler(ctx, req)
}

func (d *Dispatcher) match(req Request) (route, map[string]string, bool) {
	for _, rt := range d.routes {
		if rt.method != "" && rt.method != req.Method {
			continue
		}
		if rt.param == "" {
			if req.Path == rt.path {
				return rt, nil, true
			}
			continue
		}
		rest, found := strings.CutPrefix(req.Path, rt.path)
		if !found || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		return rt, map[string]string{rt.param: rest}, true
	}
	return route{}, nil, false
}

func (d *Dispatcher) decorate(resp Response, requestID string) Response {
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["Content-Type"] = "application/json"
	resp.Headers["Access-Control-Allow-Origin"] = d.allowedOrigin
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers[RequestIDHeader] = requestID
	return resp
}
