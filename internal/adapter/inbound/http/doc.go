// Package http serves the operator console's local observability endpoints.
//
// # Endpoints
//
//   - GET /metrics: Prometheus metrics for the decision service client and
//     the session
//   - GET /health: probes the decision service and reports its connectivity
//
// # Usage
//
//	server := http.NewServer(
//	    http.WithAddr("127.0.0.1:9464"),
//	    http.WithRegistry(reg),
//	    http.WithHealthChecker(http.NewHealthChecker(probeService, version)),
//	    http.WithLogger(logger),
//	)
//	err := server.Start(ctx) // blocks until ctx is cancelled
//
// The listener binds to localhost by default. It has no authentication and
// should not be exposed beyond the operator's machine.
package http
