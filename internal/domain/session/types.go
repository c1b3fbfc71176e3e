// Package session holds the state of one operator session against the
// decision service.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatten-sekisho/sekisho/internal/domain/envelope"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// Session tracks the current request, the raw context text and the last
// settled submit and execute results.
//
// Submit and execute own disjoint parts of the state and may run
// concurrently. The mutex guards state writes only and is never held across
// network I/O; overlapping calls of the same kind race and the most recently
// settled result wins.
type Session struct {
	// ID is a random identifier used to correlate log lines.
	ID string
	// CreatedAt is when the session was created (UTC).
	CreatedAt time.Time

	mu          sync.RWMutex
	request     string
	contextText string
	submit      *envelope.Result[gate.Response]
	execute     *envelope.Result[gate.Response]
	// in-flight counts; a flag alone would be cleared by the first of two
	// overlapping calls
	submitting int
	executing  int
}

// New creates an empty session whose request text is the SAFE preset.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		request:   Presets[PresetSafe],
	}
}

// Request returns the current request text.
func (s *Session) Request() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.request
}

// SetRequest replaces the current request text.
func (s *Session) SetRequest(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = text
}

// Context returns the raw context text as last entered.
func (s *Session) Context() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contextText
}

// SetContext replaces the raw context text. It is validated on submit.
func (s *Session) SetContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextText = text
}

// SubmitResult returns the last settled submit result, or nil.
func (s *Session) SubmitResult() *envelope.Result[gate.Response] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submit
}

// ExecuteResult returns the last settled execute result, or nil.
func (s *Session) ExecuteResult() *envelope.Result[gate.Response] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.execute
}

// Submitting reports whether a submit call is in flight.
func (s *Session) Submitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting > 0
}

// Executing reports whether an execute call is in flight.
func (s *Session) Executing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executing > 0
}
