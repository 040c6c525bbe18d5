package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Request is a transport-neutral inbound request. Both the net/http server
// and the Lambda adapter translate into it.
type Request struct {
	Method string
	Path   string
	// Query holds the first value of every query parameter.
	Query map[string]string
	// PathParams may be pre-filled by the transport (API Gateway does so);
	// otherwise the dispatcher extracts them from Path.
	PathParams map[string]string
	Headers    map[string]string
	Body       []byte
}

// Header returns a header value, matching the name case-insensitively.
func (r Request) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Response is the envelope every handler returns.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// HandlerFunc serves one route.
type HandlerFunc func(ctx context.Context, req Request) Response

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal_error","message":"Internal server error"}`)
	}
	return Response{StatusCode: status, Headers: map[string]string{}, Body: body}
}

func errorResponse(status int, code, message string) Response {
	return jsonResponse(status, errorBody{Error: code, Message: message})
}

func badRequest(message string) Response {
	return errorResponse(http.StatusBadRequest, "invalid_request", message)
}

func internalError() Response {
	return errorResponse(http.StatusInternalServerError, "internal_error", "Internal server error")
}
