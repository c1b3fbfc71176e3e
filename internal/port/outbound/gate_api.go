package outbound

import (
	"context"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// GateAPI is the outbound port to the remote decision service.
// Every method performs exactly one request and always returns a settled
// envelope; failures are reported inside the envelope, never as panics.
type GateAPI interface {
	// Descriptor fetches the service's API descriptor (GET /openapi.json).
	Descriptor(ctx context.Context) envelope.Result[map[string]any]

	// Submit sends a request for review (POST /gate/submit).
	Submit(ctx context.Context, req gate.SubmitRequest) envelope.Result[gate.Response]

	// Execute attempts an action under a permit (POST /gate/execute).
	Execute(ctx context.Context, req gate.ExecuteRequest) envelope.Result[gate.Response]
}
