// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider returns a [sdktrace.TracerProvider] which samples every
// span and hands finished spans to the processor selected by cfg.SpanProcessor.
func NewTracerProvider(ctx context.Context, cfg Config, res *resource.Resource, t Transport) (*sdktrace.TracerProvider, error) {
	cfg = cfg.withDefaults()

	exp, err := t.SpanExporter(ctx, res)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(newSpanProcessor(cfg, taggedSpanExporter{SpanExporter: exp})),
	), nil
}

func newSpanProcessor(cfg Config, exp sdktrace.SpanExporter) sdktrace.SpanProcessor {
	if cfg.SpanProcessor == SimpleSpanProcessor {
		return sdktrace.NewSimpleSpanProcessor(exp)
	}
	return NewQueueProcessor(
		exp,
		MaxQueueSize(cfg.MaxQueueSize),
		BatchSize(cfg.BatchSize),
		BatchTimeout(cfg.BatchTimeout),
		ExportTimeout(cfg.ExportTimeout),
	)
}

// NewMeterProvider returns a [sdkmetric.MeterProvider] whose metrics are
// collected and exported every cfg.ExportInterval.
func NewMeterProvider(ctx context.Context, cfg Config, res *resource.Resource, t Transport) (*sdkmetric.MeterProvider, error) {
	cfg = cfg.withDefaults()

	exp, err := t.MetricExporter(ctx, res)
	if err != nil {
		return nil, err
	}

	r := sdkmetric.NewPeriodicReader(
		taggedMetricExporter{Exporter: exp},
		sdkmetric.WithInterval(cfg.ExportInterval),
		sdkmetric.WithTimeout(cfg.ExportTimeout),
	)
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(r),
	), nil
}
