package otelcol

import (
	"context"
	"fmt"
	"time"

	"vaultbooks/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol",
	fx.Provide(
		NewTracerProvider,
		NewMeterProvider,
	),
)

func newResource(cfg *config.Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
			attribute.String("service.version", cfg.AppVersion),
			attribute.String("deployment.environment", cfg.AppEnv),
		),
	)
}

// NewTracerProvider exports spans over OTLP when OTEL.ADDR is set and falls
// back to the global (no-op) provider otherwise.
func NewTracerProvider(lc fx.Lifecycle, cfg *config.Config) (trace.TracerProvider, error) {
	if cfg.Otel.Addr == "" {
		return otel.GetTracerProvider(), nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		zap.L().Error("failed to create otlp exporter", zap.String("addr", cfg.Otel.Addr), zap.Error(err))
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	tp := ProvideTrace(exporter, sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}

const exporterStartTimeout = 10 * time.Second

// newExporter builds a gzip-compressed OTLP span exporter for OTEL.PROTOCOL.
func newExporter(cfg *config.Config) (*otlptrace.Exporter, error) {
	var client otlptrace.Client
	switch cfg.Otel.Protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Otel.Addr),
			otlptracegrpc.WithCompressor("gzip"),
		}
		if cfg.Otel.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		client = otlptracegrpc.NewClient(opts...)
	case "http":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.Otel.Addr),
			otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		}
		if cfg.Otel.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client = otlptracehttp.NewClient(opts...)
	default:
		return nil, fmt.Errorf("otel: unsupported protocol %q", cfg.Otel.Protocol)
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterStartTimeout)
	defer cancel()
	return otlptrace.New(ctx, client)
}

func NewMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

func ProvideTrace(exporter sdktrace.SpanExporter, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	if len(opts) == 0 {
		opts = []sdktrace.TracerProviderOption{sdktrace.WithResource(resource.Default())}
	}

	opts = append(opts, sdktrace.WithBatcher(exporter))

	return sdktrace.NewTracerProvider(opts...)
}
