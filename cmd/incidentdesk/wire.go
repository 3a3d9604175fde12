package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incidentdesk/internal/adapters/board"
	"incidentdesk/internal/blob"
	"incidentdesk/internal/config"
	"incidentdesk/internal/core"
	"incidentdesk/internal/infra/mirror"
	"incidentdesk/internal/infra/mirror/postgres"
	"incidentdesk/internal/infra/mirror/sqlite"
)

// app holds the wired process graph.
type app struct {
	svc     *core.Service
	handler http.Handler
	closers []io.Closer
}

// Close releases mirror connections and trace files in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := core.NewPrometheusRecorder(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	metrics := core.MultiMetrics{prom, core.NewExpvarMetricsRecorder("")}

	opts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(core.LoggerAuditRecorder{Logger: logger}),
		core.WithCatalog(core.NewCatalog(core.WithOccupantMatch(cfg.OccupantMatch))),
	}
	if cfg.TraceFile != "" {
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f)
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}

	m, err := openMirror(ctx, cfg.Mirror)
	if err != nil {
		return nil, err
	}
	if m != nil {
		a.closers = append(a.closers, m)
		opts = append(opts, core.WithObserver(m))
		logger.Info("sql mirror enabled", "mirror", m.Name())
	}
	a.svc = core.NewInMemoryService(opts...)

	handlerOpts := []board.HandlerOption{
		board.WithHandlerLogger(logger),
		board.WithPageSize(cfg.PageSize),
	}
	if cfg.ExportsEnabled() {
		store, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		exporter := board.NewExporter(a.svc, store,
			board.WithExportLogger(logger),
			board.WithExportAudit(core.LoggerAuditRecorder{Logger: logger}),
		)
		handlerOpts = append(handlerOpts, board.WithExporter(exporter))
	}
	h := board.NewHandler(a.svc, handlerOpts...)
	h.Router().Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	h.Router().Handle("/debug/vars", expvar.Handler())
	a.handler = h
	return a, nil
}

// openMirror returns nil when no mirror is configured.
func openMirror(ctx context.Context, cfg config.Mirror) (*mirror.Store, error) {
	var (
		m   *mirror.Store
		err error
	)
	switch cfg.Driver {
	case "", config.MirrorNone:
		return nil, nil
	case config.MirrorSQLite:
		m, err = sqlite.NewStore(ctx, cfg.SQLitePath)
	case config.MirrorPostgres:
		m, err = postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown mirror driver %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s mirror: %w", cfg.Driver, err)
	}
	return m, nil
}
