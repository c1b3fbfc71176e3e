// Package gateapi is the HTTP client for the remote decision service.
//
// Every call performs exactly one request under a deadline and settles into
// an envelope.Result. Transport failures, non-2xx statuses and malformed
// bodies are all represented inside the envelope; nothing is returned as a
// Go error or panics.
package gateapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
)

const (
	// DefaultBaseURL is used when no base origin is configured.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout is the deadline for submit and execute calls.
	DefaultTimeout = 30 * time.Second

	// DefaultProbeTimeout is the deadline for descriptor probes.
	DefaultProbeTimeout = 5 * time.Second

	// maxResponseBodySize bounds how much of a response body is read.
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB

	instrumentationName = "github.com/gatten-sekisho/sekisho/internal/adapter/outbound/gateapi"
)

// Client talks to one decision service base origin.
// It implements the outbound.GateAPI interface.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	probeTimeout time.Duration

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Request describes a single call relative to the base origin.
type Request struct {
	Method string
	Path   string
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
	// Timeout overrides the client's default deadline when positive.
	Timeout time.Duration
}

// New creates a Client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		timeout:      DefaultTimeout,
		probeTimeout: DefaultProbeTimeout,
		logger:       slog.Default(),
		tracer:       otel.Tracer(instrumentationName),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	c.logger = c.logger.With("component", "gateapi")

	return c
}

// BaseURL returns the normalized base origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle keep-alive connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// exchange is a fully received HTTP response.
type exchange struct {
	status     int
	statusLine string
	body       []byte
}

// Fetch performs req against c and settles the outcome into an envelope.
//
// The deadline cancels the in-flight request, including a body that is still
// streaming. The envelope is built at a single point after the round trip
// returns, so a call settles exactly once; the deadline's timer is released
// on every path by the deferred cancel.
func Fetch[T any](ctx context.Context, c *Client, req Request) envelope.Result[T] {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "gateapi.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.Path),
			attribute.String("sekisho.request_id", requestID),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	ex, err := c.do(ctx, method, req, requestID)
	elapsed := time.Since(start)

	var res envelope.Result[T]
	if err != nil {
		res = envelope.Failure[T](&envelope.TransportError{
			Path:     req.Path,
			Timeout:  timeout,
			TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
			Cause:    err,
		})
	} else {
		res = settle[T](ex, c.logger, req.Path)
	}

	c.record(span, method, req.Path, requestID, settlement{
		ok:        res.OK,
		status:    res.Status,
		errorText: res.ErrorText,
		err:       res.Err,
	}, elapsed)
	return res
}

// do sends one request and reads the whole response body.
func (c *Client) do(ctx context.Context, method string, req Request, requestID string) (*exchange, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	statusLine := httpResp.Status
	if statusLine == "" {
		statusLine = fmt.Sprintf("%d %s", httpResp.StatusCode, http.StatusText(httpResp.StatusCode))
	}
	return &exchange{
		status:     httpResp.StatusCode,
		statusLine: statusLine,
		body:       body,
	}, nil
}

// settle converts a received response into an envelope. OK depends only on
// the status code; a body that fails to decode leaves Data nil.
func settle[T any](ex *exchange, logger *slog.Logger, path string) envelope.Result[T] {
	res := envelope.Result[T]{
		OK:     ex.status >= 200 && ex.status < 300,
		Status: ex.status,
	}

	data, err := decodeBody[T](ex.body)
	if err != nil {
		logger.Debug("response body is not valid JSON",
			"path", path,
			"status", ex.status,
			"error", err,
		)
	}
	res.Data = data

	if !res.OK {
		text := string(ex.body)
		if text == "" {
			text = ex.statusLine
		}
		res.ErrorText = text
		res.Err = &envelope.StatusError{
			Status:     ex.status,
			StatusLine: ex.statusLine,
			Body:       string(ex.body),
		}
	}
	return res
}

// decodeBody parses a non-empty body. An empty body or a JSON null yields
// no data and no error.
func decodeBody[T any](body []byte) (*T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// settlement is the type-independent part of a Result used for reporting.
type settlement struct {
	ok        bool
	status    int
	errorText string
	err       error
}

func (s settlement) outcome() string {
	switch {
	case s.ok:
		return outcomeOK
	case s.status != 0:
		return outcomeHTTPError
	case errors.Is(s.err, envelope.ErrTimeout):
		return outcomeTimeout
	default:
		return outcomeTransportError
	}
}

// record finishes the span, logs the settlement and updates metrics.
func (c *Client) record(span trace.Span, method, path, requestID string, s settlement, elapsed time.Duration) {
	outcome := s.outcome()

	if s.status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", s.status))
	}
	if !s.ok {
		span.SetStatus(codes.Error, s.errorText)
	}

	c.metrics.observe(path, outcome, elapsed)

	attrs := []any{
		"method", method,
		"path", path,
		"status", s.status,
		"outcome", outcome,
		"duration", elapsed,
		"request_id", requestID,
	}
	if s.status == 0 {
		c.logger.Warn("gate api request failed", append(attrs, "error", s.errorText)...)
		return
	}
	c.logger.Debug("gate api request settled", attrs...)
}
