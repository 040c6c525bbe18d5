package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/unicitynetwork/Boxy-Run/pkg/metrics"
)

// MetricsMiddleware wraps a route handler to record Prometheus metrics.
func MetricsMiddleware(next HandlerFunc, endpoint string) HandlerFunc {
	return func(ctx context.Context, req Request) Response {
		start := time.Now()

		resp := next(ctx, req)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordHTTPRequest(endpoint, req.Method, strconv.Itoa(resp.StatusCode), durationMs)

		if resp.StatusCode >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http_"+endpoint, getErrorType(resp.StatusCode))
		}
		return resp
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}
