// Package telemetry builds the OpenTelemetry log and trace pipelines.
//
// Both exporters write JSON lines to an io.Writer so a collector sidecar can
// tail them. The providers are registered globally; callers own shutdown,
// which flushes any batched records.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/webitel/hose-relay/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Resource describes the running service.
func Resource(name, namespace, version string, extra ...attribute.KeyValue) *resource.Resource {
	attrs := append([]attribute.KeyValue{
		attribute.String("service.name", name),
		attribute.String("service.namespace", namespace),
		attribute.String("service.version", version),
	}, extra...)
	return resource.NewSchemaless(attrs...)
}

// NewLoggerProvider exports log records to w and installs the provider as
// the global one.
func NewLoggerProvider(res *resource.Resource, w io.Writer) (*sdklog.LoggerProvider, error) {
	exp, err := stdoutlog.New(stdoutlog.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	)
	global.SetLoggerProvider(lp)
	return lp, nil
}

// NewTracerProvider installs the global tracer provider. With tracing
// disabled nothing is sampled or exported.
func NewTracerProvider(res *resource.Resource, cfg config.TraceConfig, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.Enabled {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
		}
		opts = append(opts,
			sdktrace.WithBatcher(exp),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		)
	} else {
		opts = append(opts, sdktrace.WithSampler(sdktrace.NeverSample()))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// LevelHandler drops records below level before they reach h. The log SDK
// has no level of its own, so the shared config level is applied here.
func LevelHandler(h slog.Handler, level slog.Leveler) slog.Handler {
	return &levelHandler{next: h, level: level}
}

type levelHandler struct {
	next  slog.Handler
	level slog.Leveler
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.next.Enabled(ctx, l)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{next: h.next.WithGroup(name), level: h.level}
}
