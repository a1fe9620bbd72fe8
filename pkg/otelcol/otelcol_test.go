package otelcol

import (
	"context"
	"testing"

	"vaultbooks/pkg/config"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func otelConfig(addr, protocol string) *config.Config {
	cfg := &config.Config{AppName: "vaultbooks-test", AppEnv: "test"}
	cfg.Otel.Addr = addr
	cfg.Otel.Protocol = protocol
	cfg.Otel.Insecure = true
	return cfg
}

func TestNewExporter(t *testing.T) {
	_, err := newExporter(otelConfig("localhost:4318", "zipkin"))
	require.ErrorContains(t, err, "unsupported protocol")

	exp, err := newExporter(otelConfig("localhost:4318", "http"))
	require.NoError(t, err)
	require.NoError(t, exp.Shutdown(context.Background()))
}

func TestNewTracerProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	lc := fxtest.NewLifecycle(t)
	tp, err := NewTracerProvider(lc, otelConfig("", ""))
	require.NoError(t, err)
	require.Equal(t, prev, tp)

	tp, err = NewTracerProvider(lc, otelConfig("localhost:4318", "http"))
	require.NoError(t, err)
	require.IsType(t, &sdktrace.TracerProvider{}, tp)
	require.Equal(t, tp, otel.GetTracerProvider())

	lc.RequireStart().RequireStop()
}
