package observability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracerConfig is the tracing section of the configuration.
type TracerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // OTLP gRPC collector, host:port
	Insecure bool   `mapstructure:"insecure"`

	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"-"` // set from the binary's version
	Environment    string `mapstructure:"environment"`

	// SampleRate is the share of root traces kept, between 0 and 1
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracerConfig returns the defaults for a local collector.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "assetmanifest",
		Environment: "development",
		SampleRate:  1.0,
	}
}

// Tracer owns the process tracer provider. Spans are started through the
// global otel tracer so packages need no handle on it.
type Tracer struct {
	provider *sdktrace.TracerProvider
}

// NewTracer exports spans to the configured OTLP gRPC collector. A disabled
// config returns a Tracer that leaves the global no-op provider in place.
func NewTracer(ctx context.Context, cfg TracerConfig) (*Tracer, error) {
	if !cfg.Enabled {
		log.Debug().Msg("Tracing disabled")
		return &Tracer{}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	provider := newProvider(exporter, cfg)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("endpoint", cfg.Endpoint).
		Str("service_name", cfg.ServiceName).
		Float64("sample_rate", cfg.SampleRate).
		Msg("Tracing enabled")

	return &Tracer{provider: provider}, nil
}

// newProvider batches spans to exporter, tagged with the service identity
// from cfg.
func newProvider(exporter sdktrace.SpanExporter, cfg TracerConfig) *sdktrace.TracerProvider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
}

// sampler keeps every trace at a rate of 1 or more, otherwise a ratio of
// root traces. Children follow their parent.
func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartManifestSpan starts a span covering one manifest pass
func StartManifestSpan(ctx context.Context, compilationID, assetID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("assetmanifest-emitter")
	return tracer.Start(ctx, "manifest.emit",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("manifest.compilation_id", compilationID),
			attribute.String("manifest.asset_id", assetID),
		),
	)
}

// StartStorageSpan starts a span for a storage operation
func StartStorageSpan(ctx context.Context, operation, backend, key string) (context.Context, trace.Span) {
	tracer := otel.Tracer("assetmanifest-storage")
	return tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.operation", operation),
			attribute.String("storage.backend", backend),
			attribute.String("storage.key", key),
		),
	)
}

// EndSpan ends a span and records any error
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// SetManifestResult records the size of an emitted manifest on the span in ctx
func SetManifestResult(ctx context.Context, files, bytes int, state string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("manifest.files", files),
			attribute.Int("manifest.bytes", bytes),
			attribute.String("manifest.state", state),
		)
	}
}
