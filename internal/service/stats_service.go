// Package service contains application services.
package service

import (
	"sync"
	"sync/atomic"

	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// StatsService tallies the outcomes of one operator session using lock-free
// atomic counters. All counter operations are safe for concurrent access from
// multiple goroutines.
type StatsService struct {
	submits          atomic.Int64
	executes         atomic.Int64
	permitsIssued    atomic.Int64
	executesAccepted atomic.Int64
	executesRejected atomic.Int64
	transportErrors  atomic.Int64

	// Per-gate classification counters (mutex-protected map).
	mu         sync.Mutex
	gateCounts map[string]int64
}

// NewStatsService creates a new StatsService with all counters initialized to zero.
func NewStatsService() *StatsService {
	return &StatsService{
		gateCounts: make(map[string]int64),
	}
}

// RecordSubmit counts a settled submit and the verdicts derived from it.
func (s *StatsService) RecordSubmit(board gate.Board) {
	s.submits.Add(1)
	if board.Permit.Classification == gate.Issued {
		s.permitsIssued.Add(1)
	}
	s.mu.Lock()
	for _, v := range board.Verdicts() {
		s.gateCounts[gateKey(v)]++
	}
	s.mu.Unlock()
}

// RecordExecute counts a settled execute. Only a received response counts as
// accepted or rejected.
func (s *StatsService) RecordExecute(ok bool, received bool) {
	s.executes.Add(1)
	switch {
	case ok:
		s.executesAccepted.Add(1)
	case received:
		s.executesRejected.Add(1)
	}
}

// RecordTransportError increments the counter of calls that got no response.
func (s *StatsService) RecordTransportError() {
	s.transportErrors.Add(1)
}

func gateKey(v gate.Verdict) string {
	return string(v.Gate) + ":" + string(v.Classification)
}

// Stats holds a snapshot of all counters at a point in time.
type Stats struct {
	Submits          int64            `json:"submits" yaml:"submits"`
	Executes         int64            `json:"executes" yaml:"executes"`
	PermitsIssued    int64            `json:"permits_issued" yaml:"permits_issued"`
	ExecutesAccepted int64            `json:"executes_accepted" yaml:"executes_accepted"`
	ExecutesRejected int64            `json:"executes_rejected" yaml:"executes_rejected"`
	TransportErrors  int64            `json:"transport_errors" yaml:"transport_errors"`
	GateCounts       map[string]int64 `json:"gate_counts" yaml:"gate_counts"`
}

// GetStats returns a snapshot of all counters.
// The snapshot is consistent per-counter but not atomically across all counters.
func (s *StatsService) GetStats() Stats {
	s.mu.Lock()
	gc := make(map[string]int64, len(s.gateCounts))
	for k, v := range s.gateCounts {
		gc[k] = v
	}
	s.mu.Unlock()

	return Stats{
		Submits:          s.submits.Load(),
		Executes:         s.executes.Load(),
		PermitsIssued:    s.permitsIssued.Load(),
		ExecutesAccepted: s.executesAccepted.Load(),
		ExecutesRejected: s.executesRejected.Load(),
		TransportErrors:  s.transportErrors.Load(),
		GateCounts:       gc,
	}
}

// Reset sets all counters to zero.
func (s *StatsService) Reset() {
	s.submits.Store(0)
	s.executes.Store(0)
	s.permitsIssued.Store(0)
	s.executesAccepted.Store(0)
	s.executesRejected.Store(0)
	s.transportErrors.Store(0)

	s.mu.Lock()
	s.gateCounts = make(map[string]int64)
	s.mu.Unlock()
}
