package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/webitel/hose-relay/config"
	"github.com/webitel/hose-relay/infra/metrics"
	"github.com/webitel/hose-relay/infra/telemetry"
	"github.com/webitel/hose-relay/internal/domain/registry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func serviceResource() *resource.Resource {
	return telemetry.Resource(ServiceName, ServiceNamespace, version,
		attribute.String("vcs.branch", branch),
		attribute.String("vcs.commit", commit),
		attribute.String("build.commit_date", commitDate),
		attribute.String("build.timestamp", buildTimestamp),
	)
}

// ProvideLogger builds the process logger and makes it the slog default.
// The level is shared with the config watcher.
func ProvideLogger(cfg *config.Config, lc fx.Lifecycle) (*slog.Logger, error) {
	h, shutdown, err := newLogHandler(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(shutdown))

	logger := slog.New(h).With(
		"service", ServiceName,
		"version", version,
		"commit", commit,
	)
	slog.SetDefault(logger)
	return logger, nil
}

// newLogHandler picks the JSON handler or, with log.otel, the otelslog
// bridge backed by an SDK LoggerProvider writing to w. shutdown flushes
// pending records.
func newLogHandler(cfg *config.Config, w io.Writer) (slog.Handler, func(context.Context) error, error) {
	if !cfg.Log.Otel {
		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
		return h, func(context.Context) error { return nil }, nil
	}

	lp, err := telemetry.NewLoggerProvider(serviceResource(), w)
	if err != nil {
		return nil, nil, err
	}
	h := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp))
	return telemetry.LevelHandler(h, cfg.LogLevel), lp.Shutdown, nil
}

// ProvideTracerProvider registers the global tracer provider used by the
// pipeline and resolver spans. Spans go to stderr so they never interleave
// with log lines.
func ProvideTracerProvider(cfg *config.Config, lc fx.Lifecycle) (*sdktrace.TracerProvider, error) {
	tp, err := telemetry.NewTracerProvider(serviceResource(), cfg.Trace, os.Stderr)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(tp.Shutdown))
	return tp, nil
}

// ProvideMetrics exposes one registry both as itself and as the session recorder.
func ProvideMetrics() (*metrics.Metrics, registry.Recorder) {
	m := metrics.New()
	return m, m
}
