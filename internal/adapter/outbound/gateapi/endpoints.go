package gateapi

import (
	"context"
	"net/http"

	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
	"github.com/gatten-sekisho/sekisho/internal/port/outbound"
)

var _ outbound.GateAPI = (*Client)(nil)

// PathDescriptor is the location of the service's API descriptor.
const PathDescriptor = "/openapi.json"

// Descriptor fetches the API descriptor using the probe deadline.
func (c *Client) Descriptor(ctx context.Context) envelope.Result[map[string]any] {
	return Fetch[map[string]any](ctx, c, Request{
		Method:  http.MethodGet,
		Path:    PathDescriptor,
		Timeout: c.probeTimeout,
	})
}

// Submit sends a request for review.
func (c *Client) Submit(ctx context.Context, req gate.SubmitRequest) envelope.Result[gate.Response] {
	return Fetch[gate.Response](ctx, c, Request{
		Method: http.MethodPost,
		Path:   connectivity.SubmitPath,
		Body:   req,
	})
}

// Execute attempts an action under the given permit.
func (c *Client) Execute(ctx context.Context, req gate.ExecuteRequest) envelope.Result[gate.Response] {
	return Fetch[gate.Response](ctx, c, Request{
		Method: http.MethodPost,
		Path:   connectivity.ExecutePath,
		Body:   req,
	})
}
