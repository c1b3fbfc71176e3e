package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gatten-sekisho/sekisho/internal/adapter/outbound/cel"
	"github.com/gatten-sekisho/sekisho/internal/adapter/outbound/gateapi"
	"github.com/gatten-sekisho/sekisho/internal/config"
	"github.com/gatten-sekisho/sekisho/internal/domain/connectivity"
	"github.com/gatten-sekisho/sekisho/internal/domain/session"
	"github.com/gatten-sekisho/sekisho/internal/render"
	"github.com/gatten-sekisho/sekisho/internal/service"
	"github.com/gatten-sekisho/sekisho/internal/telemetry"
)

// telemetryShutdownTimeout bounds span flushing on exit.
const telemetryShutdownTimeout = 5 * time.Second

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	client       *gateapi.Client
	metrics      *service.Metrics
	stats        *service.StatsService
	connectivity *service.ConnectivityService
	renderer     *render.Renderer

	evaluator *cel.Evaluator

	// connection is the status of the most recent probe, empty before one.
	connection connectivity.Status

	shutdownTelemetry telemetry.ShutdownFunc
}

// newApp loads configuration and wires the client, services and renderer
// for cmd. Callers must call close.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log, verbose)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Trace.Enabled,
		ServiceVersion: Version,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	client := gateapi.New(cfg.API.BaseURL,
		gateapi.WithTimeout(cfg.API.TimeoutDuration()),
		gateapi.WithProbeTimeout(cfg.API.ProbeTimeoutDuration()),
		gateapi.WithLogger(logger),
		gateapi.WithMetrics(gateapi.NewMetrics(reg)),
	)
	metrics := service.NewMetrics(reg)

	out := cmd.OutOrStdout()
	return &app{
		cfg:               cfg,
		logger:            logger,
		registry:          reg,
		client:            client,
		metrics:           metrics,
		stats:             service.NewStatsService(),
		connectivity:      service.NewConnectivityService(client, logger, metrics),
		renderer:          render.New(out, format, render.NewPalette(render.ColorMode(cfg.Output.Color), out)),
		shutdownTelemetry: shutdown,
	}, nil
}

// newSession starts a fresh session sharing the app's client and tallies.
func (a *app) newSession() *service.SessionService {
	return service.NewSessionService(a.client, session.New(), a.logger,
		service.WithSessionMetrics(a.metrics),
		service.WithStats(a.stats),
	)
}

// probe checks connectivity and remembers the status for expectations.
func (a *app) probe(ctx context.Context) connectivity.Report {
	rep := a.connectivity.Probe(ctx)
	a.connection = rep.Status
	return rep
}

// facts builds the expectation input for a session.
func (a *app) facts(svc *service.SessionService) cel.Facts {
	return cel.Facts{
		Snapshot:   svc.Session().Snapshot(),
		Connection: a.connection,
	}
}

// expectationEvaluator returns the shared evaluator, creating it on first use.
func (a *app) expectationEvaluator() (*cel.Evaluator, error) {
	if a.evaluator == nil {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, fmt.Errorf("failed to create expectation environment: %w", err)
		}
		a.evaluator = evaluator
	}
	return a.evaluator, nil
}

// close releases connections and flushes spans.
func (a *app) close() {
	a.client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := a.shutdownTelemetry(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}
