package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// setupOTel builds the meter provider for the exporter's own metrics. They
// are served from reg next to the account gauges, and pushed over OTLP as
// well when an endpoint is configured.
func setupOTel(ctx context.Context, reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	pull, err := otelprom.New(
		otelprom.WithRegisterer(reg),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("prometheus bridge: %w", err)
	}
	opts := []sdkmetric.Option{sdkmetric.WithReader(pull)}

	push, err := otlpReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	if push != nil {
		opts = append(opts, sdkmetric.WithReader(push))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)
	return provider, nil
}

// otlpReader returns a periodic OTLP push reader, or nil when
// OTEL_EXPORTER_OTLP_ENDPOINT is unset.
func otlpReader(ctx context.Context) (sdkmetric.Reader, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}
	exp, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("otlp: push enabled", "endpoint", endpoint)
	return sdkmetric.NewPeriodicReader(exp), nil
}
