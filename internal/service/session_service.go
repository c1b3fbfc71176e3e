package service

import (
	"context"
	"log/slog"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
	"github.com/gatten-sekisho/sekisho/internal/port/outbound"
)

// SessionService drives submit and execute calls on behalf of one session.
// Submit and Execute may be called from different goroutines.
type SessionService struct {
	api     outbound.GateAPI
	session *session.Session
	logger  *slog.Logger
	metrics *Metrics
	stats   *StatsService
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionMetrics records gate verdicts.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *SessionService) {
		s.metrics = m
	}
}

// WithStats tallies outcomes into st.
func WithStats(st *StatsService) SessionOption {
	return func(s *SessionService) {
		s.stats = st
	}
}

// NewSessionService creates a SessionService operating on sess.
func NewSessionService(api outbound.GateAPI, sess *session.Session, logger *slog.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		api:     api,
		session: sess,
		logger:  logger.With("session_id", sess.ID),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = NewStatsService()
	}
	return s
}

// Session returns the session this service operates on.
func (s *SessionService) Session() *session.Session {
	return s.session
}

// Stats returns the outcome tallies for this session.
func (s *SessionService) Stats() *StatsService {
	return s.stats
}

// Submit sends userRequest for review and stores the settled result.
//
// contextText is the raw operator input. When it is not blank it must be a
// JSON object; otherwise a *session.ValidationError is returned and no
// request is made. Every other outcome, including transport failures, is
// reported in the returned envelope and the error is nil.
func (s *SessionService) Submit(ctx context.Context, userRequest, contextText string) (envelope.Result[gate.Response], error) {
	s.session.SetRequest(userRequest)
	s.session.SetContext(contextText)

	payload, err := session.ParseContext(contextText)
	if err != nil {
		s.logger.Debug("submit rejected locally", "error", err)
		return envelope.Result[gate.Response]{}, err
	}

	s.session.BeginSubmit()
	defer s.session.EndSubmit()

	res := s.api.Submit(ctx, gate.SubmitRequest{
		UserRequest: userRequest,
		Context:     payload,
	})
	s.session.StoreSubmit(res)

	board := gate.Evaluate(res.Value())
	s.metrics.observeBoard(board)
	s.stats.RecordSubmit(board)
	if !res.Received() {
		s.stats.RecordTransportError()
	}

	s.logger.Info("submit settled",
		"ok", res.OK,
		"status", res.Status,
		"explain", board.Explain.Classification,
		"policy", board.Policy.Classification,
		"permit", board.Permit.Classification,
	)
	return res, nil
}

// Execute attempts the fixed action. With usePermit the id of the permit
// from the last submit is sent when one is held; otherwise the invalid
// sentinel id is sent and the server is expected to reject it.
func (s *SessionService) Execute(ctx context.Context, usePermit bool) envelope.Result[gate.Response] {
	permitID := s.session.PermitIDForExecute(usePermit)

	s.session.BeginExecute()
	defer s.session.EndExecute()

	res := s.api.Execute(ctx, gate.ExecuteRequest{
		PermitID: permitID,
		Action:   session.DemoAction(),
	})
	s.session.StoreExecute(res)

	s.stats.RecordExecute(res.OK, res.Received())
	if !res.Received() {
		s.stats.RecordTransportError()
	}

	s.logger.Info("execute settled",
		"ok", res.OK,
		"status", res.Status,
		"with_permit", permitID != session.InvalidPermitID,
	)
	return res
}
