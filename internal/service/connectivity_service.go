package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/port/outbound"
)

// fallbackProbeError is reported when the descriptor could not be used and
// the call produced no error text of its own.
const fallbackProbeError = "openapi fetch failed"

// ConnectivityService classifies the configured decision service.
type ConnectivityService struct {
	api     outbound.GateAPI
	logger  *slog.Logger
	metrics *Metrics
}

// NewConnectivityService creates a ConnectivityService. metrics may be nil.
func NewConnectivityService(api outbound.GateAPI, logger *slog.Logger, metrics *Metrics) *ConnectivityService {
	return &ConnectivityService{
		api:     api,
		logger:  logger,
		metrics: metrics,
	}
}

// Probe fetches the API descriptor once and classifies the service.
// A failed fetch or an unparseable descriptor is DISCONNECTED.
func (s *ConnectivityService) Probe(ctx context.Context) connectivity.Report {
	res := s.api.Descriptor(ctx)

	report := connectivity.Report{At: time.Now().UTC()}
	if !res.OK || res.Value() == nil {
		report.Status = connectivity.Disconnected
		report.Error = res.ErrorText
		if report.Error == "" {
			report.Error = fallbackProbeError
		}
	} else {
		descriptor := res.Value()
		report.Status = connectivity.Classify(descriptor)
		report.Paths = connectivity.Paths(descriptor)
	}

	s.metrics.observeProbe(report.Status)
	s.logger.Debug("connectivity probed",
		"status", report.Status,
		"http_status", res.Status,
		"error", report.Error,
	)
	return report
}
