package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/domain/gate"
)

// Metrics holds the Prometheus metrics for session outcomes.
type Metrics struct {
	GateVerdicts       *prometheus.CounterVec
	ConnectivityProbes *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GateVerdicts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sekisho",
				Name:      "gate_verdicts_total",
				Help:      "Gate classifications derived from submit responses",
			},
			[]string{"gate", "classification"},
		),
		ConnectivityProbes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sekisho",
				Name:      "connectivity_probes_total",
				Help:      "Connectivity probes by resulting status",
			},
			[]string{"status"}, // CONNECTED/WRONG_SERVER/DISCONNECTED
		),
	}
}

func (m *Metrics) observeBoard(board gate.Board) {
	if m == nil {
		return
	}
	for _, v := range board.Verdicts() {
		m.GateVerdicts.WithLabelValues(string(v.Gate), string(v.Classification)).Inc()
	}
}

func (m *Metrics) observeProbe(status connectivity.Status) {
	if m == nil {
		return
	}
	m.ConnectivityProbes.WithLabelValues(string(status)).Inc()
}
