package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionService(api *fakeGateAPI, opts ...SessionOption) *SessionService {
	return NewSessionService(api, session.New(), testLogger(), opts...)
}

func TestSessionService_Submit_InvalidContext(t *testing.T) {
	api := &fakeGateAPI{}
	svc := newTestSessionService(api)

	_, err := svc.Submit(context.Background(), "deploy", `{"broken":`)

	if !errors.Is(err, session.ErrInvalidContext) {
		t.Fatalf("errors.Is(err, ErrInvalidContext) = false, err=%v", err)
	}
	var vErr *session.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("expected *session.ValidationError, got %T", err)
	}
	if api.submitCount() != 0 {
		t.Errorf("submit requests = %d, want 0", api.submitCount())
	}
	if svc.Session().SubmitResult() != nil {
		t.Error("no result should be stored for a locally rejected submit")
	}
	if svc.Session().Submitting() {
		t.Error("Submitting() = true after local rejection")
	}
	if svc.Session().Context() != `{"broken":` {
		t.Error("operator input should be retained")
	}
}

func TestSessionService_Submit_SendsContext(t *testing.T) {
	api := &fakeGateAPI{submit: okResponse(gate.Response{"reason": "fine"})}
	svc := newTestSessionService(api)

	if _, err := svc.Submit(context.Background(), "deploy", `{"env":"staging"}`); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := svc.Submit(context.Background(), "again", "   "); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(api.submits) != 2 {
		t.Fatalf("submit requests = %d, want 2", len(api.submits))
	}
	if api.submits[0].UserRequest != "deploy" || api.submits[0].Context["env"] != "staging" {
		t.Errorf("first request = %+v", api.submits[0])
	}
	if api.submits[1].Context != nil {
		t.Errorf("blank context should be omitted, got %+v", api.submits[1].Context)
	}
}

func TestSessionService_Submit_StoresAndDerives(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	api := &fakeGateAPI{submit: okResponse(gate.Response{
		"reason": "explanation missing",
		"policy": map[string]any{"violations": []any{}, "required_human_approval": false},
	})}
	svc := newTestSessionService(api, WithSessionMetrics(metrics))

	res, err := svc.Submit(context.Background(), "do it", "")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !res.OK {
		t.Error("expected OK result")
	}

	board := svc.Session().Board()
	if board.Explain.Classification != gate.Fail {
		t.Errorf("Explain = %s, want FAIL", board.Explain.Classification)
	}
	if board.Policy.Classification != gate.Approved {
		t.Errorf("Policy = %s, want APPROVED", board.Policy.Classification)
	}
	if board.Permit.Classification != gate.NotIssued {
		t.Errorf("Permit = %s, want NOT_ISSUED", board.Permit.Classification)
	}
	if svc.Session().Reason() != "explanation missing" {
		t.Errorf("Reason() = %q", svc.Session().Reason())
	}

	if got := testutil.ToFloat64(metrics.GateVerdicts.WithLabelValues("explain", "FAIL")); got != 1 {
		t.Errorf("explain FAIL = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.GateVerdicts.WithLabelValues("permit", "NOT_ISSUED")); got != 1 {
		t.Errorf("permit NOT_ISSUED = %v, want 1", got)
	}
	if stats := svc.Stats().GetStats(); stats.Submits != 1 || stats.PermitsIssued != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSessionService_Submit_TransportFailure(t *testing.T) {
	api := &fakeGateAPI{submit: envelope.Failure[gate.Response](&envelope.TransportError{
		Timeout:  50 * time.Millisecond,
		TimedOut: true,
	})}
	svc := newTestSessionService(api)

	res, err := svc.Submit(context.Background(), "deploy", "")
	if err != nil {
		t.Fatalf("transport failures must not be returned as errors: %v", err)
	}
	if res.OK || res.Status != 0 || res.ErrorText == "" {
		t.Errorf("unexpected result: %+v", res)
	}

	snap := svc.Session().Snapshot()
	if snap.Submit == nil || snap.Submit.ErrorText != "request timed out after 50ms" {
		t.Errorf("stored submit = %+v", snap.Submit)
	}
	for _, v := range snap.Gates.Verdicts() {
		if v.Classification != gate.Pending {
			t.Errorf("%s = %s, want PENDING", v.Gate, v.Classification)
		}
	}
	if stats := svc.Stats().GetStats(); stats.TransportErrors != 1 {
		t.Errorf("TransportErrors = %d, want 1", stats.TransportErrors)
	}
}

func TestSessionService_Execute_PermitSelection(t *testing.T) {
	withPermit := okResponse(gate.Response{"permit": map[string]any{"permit_id": "p1", "neo_tx_hash": "MOCKabc"}})

	tests := []struct {
		name      string
		submit    *envelope.Result[gate.Response]
		usePermit bool
		wantID    string
	}{
		{"no permit held, use permit", nil, true, session.InvalidPermitID},
		{"no permit held, without permit", nil, false, session.InvalidPermitID},
		{"permit held, use permit", &withPermit, true, "p1"},
		{"permit held, without permit", &withPermit, false, session.InvalidPermitID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeGateAPI{execute: okResponse(gate.Response{"reason": "executed"})}
			if tt.submit != nil {
				api.submit = *tt.submit
			}
			svc := newTestSessionService(api)
			if tt.submit != nil {
				if _, err := svc.Submit(context.Background(), "deploy", ""); err != nil {
					t.Fatalf("Submit() error = %v", err)
				}
			}

			svc.Execute(context.Background(), tt.usePermit)

			if len(api.executes) != 1 {
				t.Fatalf("execute requests = %d, want 1", len(api.executes))
			}
			req := api.executes[0]
			if req.PermitID != tt.wantID {
				t.Errorf("permit_id = %q, want %q", req.PermitID, tt.wantID)
			}
			if req.Action["tool"] != "neo_write" {
				t.Errorf("action = %+v", req.Action)
			}
		})
	}
}

func TestSessionService_Execute_RejectedDetailBecomesReason(t *testing.T) {
	api := &fakeGateAPI{execute: statusResponse(403, gate.Response{"detail": "invalid permit"}, `{"detail":"invalid permit"}`)}
	svc := newTestSessionService(api)

	res := svc.Execute(context.Background(), false)

	if res.OK || res.Status != 403 {
		t.Errorf("unexpected result: %+v", res)
	}
	if !errors.Is(res.Err, envelope.ErrHTTPStatus) {
		t.Errorf("errors.Is(Err, ErrHTTPStatus) = false")
	}
	if got := svc.Session().Reason(); got != "invalid permit" {
		t.Errorf("Reason() = %q, want %q", got, "invalid permit")
	}
	if stats := svc.Stats().GetStats(); stats.ExecutesRejected != 1 {
		t.Errorf("ExecutesRejected = %d, want 1", stats.ExecutesRejected)
	}
}

func TestSessionService_BusyWhileInFlight(t *testing.T) {
	block := make(chan struct{})
	api := &fakeGateAPI{
		submit:  okResponse(gate.Response{}),
		execute: okResponse(gate.Response{}),
		block:   block,
	}
	svc := newTestSessionService(api)
	sess := svc.Session()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Submit(context.Background(), "deploy", "")
	}()
	go func() {
		defer wg.Done()
		svc.Execute(context.Background(), true)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !(sess.Submitting() && sess.Executing()) {
		if time.Now().After(deadline) {
			t.Fatal("calls never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	close(block)
	wg.Wait()

	if sess.Submitting() || sess.Executing() {
		t.Error("busy flags not cleared after settlement")
	}
	if sess.SubmitResult() == nil || sess.ExecuteResult() == nil {
		t.Error("both results should be stored")
	}
}
