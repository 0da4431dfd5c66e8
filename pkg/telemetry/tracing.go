// Package telemetry wires optional OpenTelemetry tracing around responder
// calls. A nil Manager is a safe no-op everywhere, so callers never have to
// branch on whether tracing is enabled.
package telemetry

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/cexll/chatkit-go/telemetry"

// Config drives how telemetry is initialized.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP/HTTP collector host:port. Empty uses the
	// exporter's default.
	Endpoint string
	// Insecure disables TLS toward the collector.
	Insecure bool
	// TracerProvider overrides the exporter-backed provider, mainly for tests.
	TracerProvider trace.TracerProvider
}

// Manager coordinates span creation and provider shutdown.
type Manager struct {
	tracer   trace.Tracer
	provider trace.TracerProvider
}

// Init builds a manager backed by an OTLP/HTTP exporter, unless the config
// supplies its own provider.
func Init(ctx context.Context, cfg Config) (*Manager, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		var exporterOpts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, err
		}
		res, err := buildResource(cfg)
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(exporter),
		)
	}
	return &Manager{
		tracer:   tp.Tracer(instrumentationName),
		provider: tp,
	}, nil
}

// StartSpan proxies trace creation through the configured tracer.
func (m *Manager) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, name, opts...)
}

// EndSpan finalizes span state while standardizing error recording.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}

// Shutdown gracefully stops the underlying provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var result error
	if closer, ok := m.provider.(interface {
		Shutdown(context.Context) error
	}); ok && closer != nil {
		if err := closer.Shutdown(ctx); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}

func buildResource(cfg Config) (*resource.Resource, error) {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "chatkit-go"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(service)}
	if version := strings.TrimSpace(cfg.ServiceVersion); version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	if env := strings.TrimSpace(cfg.Environment); env != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(env))
	}
	base := resource.Default()
	schema := base.SchemaURL()
	if schema == "" {
		schema = semconv.SchemaURL
	}
	custom := resource.NewWithAttributes(schema, attrs...)
	return resource.Merge(base, custom)
}
