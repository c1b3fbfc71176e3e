package session

import (
	"time"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// InvalidPermitID is sent in place of a permit id when no permit is used.
// The server is expected to reject it.
const InvalidPermitID = "invalid-permit-id"

// DemoAction returns the fixed action attempted by execute.
func DemoAction() map[string]any {
	return map[string]any{
		"tool":    "neo_write",
		"payload": map[string]any{},
	}
}

// BeginSubmit marks a submit call as in flight. Each call must be paired
// with EndSubmit.
func (s *Session) BeginSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting++
}

// EndSubmit clears one in-flight submit mark.
func (s *Session) EndSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting > 0 {
		s.submitting--
	}
}

// StoreSubmit records a settled submit result, replacing the previous one.
func (s *Session) StoreSubmit(res envelope.Result[gate.Response]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submit = &res
}

// BeginExecute marks an execute call as in flight. Each call must be paired
// with EndExecute.
func (s *Session) BeginExecute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executing++
}

// EndExecute clears one in-flight execute mark.
func (s *Session) EndExecute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.executing > 0 {
		s.executing--
	}
}

// StoreExecute records a settled execute result, replacing the previous one.
func (s *Session) StoreExecute(res envelope.Result[gate.Response]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execute = &res
}

// submitData returns the parsed body of the last submit. Callers hold mu.
func (s *Session) submitData() gate.Response {
	if s.submit == nil {
		return nil
	}
	return s.submit.Value()
}

// executeData returns the parsed body of the last execute. Callers hold mu.
func (s *Session) executeData() gate.Response {
	if s.execute == nil {
		return nil
	}
	return s.execute.Value()
}

// Permit returns the permit from the last submit response, if any.
func (s *Session) Permit() (gate.Permit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gate.PermitFrom(s.submitData())
}

// PermitIDForExecute returns the id to send on execute. Without usePermit,
// or when no permit with a non-empty id is held, it is InvalidPermitID.
func (s *Session) PermitIDForExecute(usePermit bool) string {
	if !usePermit {
		return InvalidPermitID
	}
	permit, ok := s.Permit()
	if !ok || permit.PermitID == "" {
		return InvalidPermitID
	}
	return permit.PermitID
}

// Board derives the three gates from the last submit response. With no
// submit, or a submit whose body did not parse, every gate is pending.
func (s *Session) Board() gate.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gate.Evaluate(s.submitData())
}

// Reason returns the most relevant explanation across both calls: the
// submit reason, else the execute reason, else the execute detail. Empty
// strings count as absent; "" means no reason is available.
func (s *Session) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reason(s.submitData(), s.executeData())
}

func reason(submit, execute gate.Response) string {
	if r := gate.String(submit, "reason"); r != "" {
		return r
	}
	if r := gate.String(execute, "reason"); r != "" {
		return r
	}
	return gate.String(execute, "detail")
}

// Exchange is the presentation view of one settled call.
type Exchange struct {
	OK        bool          `json:"ok" yaml:"ok"`
	Status    int           `json:"status" yaml:"status"`
	ErrorText string        `json:"error,omitempty" yaml:"error,omitempty"`
	Response  gate.Response `json:"response,omitempty" yaml:"response,omitempty"`
}

func exchangeOf(res *envelope.Result[gate.Response]) *Exchange {
	if res == nil {
		return nil
	}
	return &Exchange{
		OK:        res.OK,
		Status:    res.Status,
		ErrorText: res.ErrorText,
		Response:  res.Value(),
	}
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID         string       `json:"session_id" yaml:"session_id"`
	CreatedAt  time.Time    `json:"created_at" yaml:"created_at"`
	Request    string       `json:"request" yaml:"request"`
	Context    string       `json:"context,omitempty" yaml:"context,omitempty"`
	Gates      gate.Board   `json:"gates" yaml:"gates"`
	Violations []string     `json:"violations,omitempty" yaml:"violations,omitempty"`
	Permit     *gate.Permit `json:"permit,omitempty" yaml:"permit,omitempty"`
	Reason     string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	Submit     *Exchange    `json:"submit,omitempty" yaml:"submit,omitempty"`
	Execute    *Exchange    `json:"execute,omitempty" yaml:"execute,omitempty"`
	Submitting bool         `json:"submitting" yaml:"submitting"`
	Executing  bool         `json:"executing" yaml:"executing"`
}

// Snapshot captures the session state and everything derived from it.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submit := s.submitData()
	snap := Snapshot{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		Request:    s.request,
		Context:    s.contextText,
		Gates:      gate.Evaluate(submit),
		Violations: gate.Violations(submit),
		Reason:     reason(submit, s.executeData()),
		Submit:     exchangeOf(s.submit),
		Execute:    exchangeOf(s.execute),
		Submitting: s.submitting > 0,
		Executing:  s.executing > 0,
	}
	if permit, ok := gate.PermitFrom(submit); ok {
		snap.Permit = &permit
	}
	return snap
}

// Seals returns the seal of each gate in display order.
func (s Snapshot) Seals() []gate.Seal {
	verdicts := s.Gates.Verdicts()
	out := make([]gate.Seal, len(verdicts))
	for i, v := range verdicts {
		out[i] = v.Seal()
	}
	return out
}
