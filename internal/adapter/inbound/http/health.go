package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
)

// healthProbeTimeout bounds a single /health request.
const healthProbeTimeout = 10 * time.Second

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// Prober reports the connectivity of the decision service.
type Prober interface {
	Probe(ctx context.Context) connectivity.Report
}

// HealthChecker verifies that the decision service is reachable.
type HealthChecker struct {
	prober  Prober
	version string
}

// NewHealthChecker creates a HealthChecker. A nil prober reports the
// decision service as not configured.
func NewHealthChecker(prober Prober, version string) *HealthChecker {
	return &HealthChecker{prober: prober, version: version}
}

// Check probes the decision service.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.prober != nil {
		rep := h.prober.Probe(ctx)
		switch rep.Status {
		case connectivity.Connected:
			checks["decision_service"] = "ok"
		default:
			healthy = false
			check := string(rep.Status)
			if rep.Error != "" {
				check += ": " + rep.Error
			}
			checks["decision_service"] = check
		}
	} else {
		checks["decision_service"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()
		health := h.Check(ctx)

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable) // 503
		} else {
			w.WriteHeader(http.StatusOK) // 200
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
