package otel

import (
	"context"
	"medsys/config"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc/credentials/insecure"
)

type Otel interface {
	NewScope(ctx context.Context, scopeName, spanName string) (context.Context, Scope)
}

type otelImpl struct {
	provider *trace.TracerProvider
}

func (o *otelImpl) NewScope(ctx context.Context, scopeName, spanName string) (context.Context, Scope) {
	ctx, span := o.provider.Tracer(scopeName).Start(ctx, spanName)

	return ctx, NewScope(span)
}

// New builds the global tracer provider. Without an OTLP endpoint spans are
// still sampled so scopes behave the same, they are just never exported.
func New(cfg *config.Config) Otel {
	options := []trace.TracerProviderOption{
		trace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.App.Name),
			semconv.DeploymentEnvironmentKey.String(cfg.Server.Env),
		)),
		trace.WithSampler(sampler(cfg.External.Otel.SampleRatio)),
	}

	if exporter := newExporter(cfg.External.Otel.Endpoint); exporter != nil {
		options = append(options, trace.WithBatcher(exporter))
	}

	provider := trace.NewTracerProvider(options...)
	otel.SetTracerProvider(provider)

	return &otelImpl{provider: provider}
}

func newExporter(endpoint string) trace.SpanExporter {
	if endpoint == "" {
		log.Warn().Msg("OTLP endpoint not set, traces will not be exported")

		return nil
	}

	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", endpoint).Msg("failed to create OTLP exporter")
	}

	return exporter
}

// sampler keeps the caller's decision for propagated traces and samples
// new roots at ratio.
func sampler(ratio float64) trace.Sampler {
	switch {
	case ratio >= 1:
		return trace.ParentBased(trace.AlwaysSample())
	case ratio <= 0:
		return trace.ParentBased(trace.NeverSample())
	}

	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}
