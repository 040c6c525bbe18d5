// Package lambda adapts API Gateway proxy events to the api dispatcher.
package lambda

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"

	"github.com/unicitynetwork/Boxy-Run/internal/adapters/http/api"
)

// Dispatcher handles one transport-neutral request.
type Dispatcher interface {
	Handle(ctx context.Context, req api.Request) api.Response
}

// Handler serves API Gateway proxy integrations.
type Handler struct {
	dispatcher Dispatcher
}

// New creates a handler over d.
func New(d Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// Handle translates ev, dispatches it and translates the response back.
// Failures are always rendered into the response; the returned error is
// reserved for events that cannot be decoded at all.
func (h *Handler) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(ev.Body)
	if ev.IsBase64Encoded && ev.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			body = nil
		} else {
			body = decoded
		}
	}

	resp := h.dispatcher.Handle(ctx, api.Request{
		Method:     ev.HTTPMethod,
		Path:       ev.Path,
		Query:      ev.QueryStringParameters,
		PathParams: ev.PathParameters,
		Headers:    ev.Headers,
		Body:       body,
	})

	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}, nil
}
