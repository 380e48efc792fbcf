// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/z5labs/funfacts/lifecycle"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the scope name of the tracer and meter handed out by [Registry].
const InstrumentationName = "github.com/z5labs/funfacts"

// MetricEvent is a single counter increment. Labels are attached in the
// same call as the value.
type MetricEvent struct {
	Name   string
	Value  int64
	Labels map[string]string
}

// Recorder is the telemetry surface available to request handling code.
type Recorder interface {
	Tracer() trace.Tracer
	CurrentSpan(context.Context) SpanContext
	RecordMetric(context.Context, MetricEvent) error
	EmitLog(context.Context, slog.Level, string, ...slog.Attr)
}

// Registry is the handle to a running telemetry pipeline. It is returned by
// [Initialize] and is safe for concurrent use.
type Registry struct {
	tp        *sdktrace.TracerProvider
	mp        *sdkmetric.MeterProvider
	transport Transport
	logger    *Logger

	tracer trace.Tracer
	meter  metric.Meter

	mu       sync.Mutex
	counters map[string]metric.Int64Counter

	shutdownOnce sync.Once
	shutdownErr  error
}

func newRegistry(tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider, t Transport, log *Logger) *Registry {
	return &Registry{
		tp:        tp,
		mp:        mp,
		transport: t,
		logger:    log,
		tracer:    tp.Tracer(InstrumentationName),
		meter:     mp.Meter(InstrumentationName),
		counters:  make(map[string]metric.Int64Counter),
	}
}

// Tracer returns the tracer of the registered [sdktrace.TracerProvider].
func (r *Registry) Tracer() trace.Tracer {
	return r.tracer
}

// Meter returns the meter of the registered [sdkmetric.MeterProvider].
func (r *Registry) Meter() metric.Meter {
	return r.meter
}

// Logger returns the correlated [Logger].
func (r *Registry) Logger() *Logger {
	return r.logger
}

// TransportKind reports which export strategy the pipeline is using.
func (r *Registry) TransportKind() TransportKind {
	return r.transport.Kind()
}

// CurrentSpan implements the [Recorder] interface.
func (r *Registry) CurrentSpan(ctx context.Context) SpanContext {
	return CurrentSpan(ctx)
}

// RecordMetric implements the [Recorder] interface. Concurrent calls never
// lose increments.
func (r *Registry) RecordMetric(ctx context.Context, ev MetricEvent) error {
	c, err := r.counter(ev.Name)
	if err != nil {
		return err
	}

	kvs := make([]attribute.KeyValue, 0, len(ev.Labels))
	for k, v := range ev.Labels {
		kvs = append(kvs, attribute.String(k, v))
	}
	c.Add(ctx, ev.Value, metric.WithAttributes(kvs...))
	return nil
}

func (r *Registry) counter(name string) (metric.Int64Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.counters[name]; ok {
		return c, nil
	}
	c, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	r.counters[name] = c
	return c, nil
}

// EmitLog implements the [Recorder] interface. The record is correlated
// with the span active in ctx.
func (r *Registry) EmitLog(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	r.logger.Emit(ctx, level, msg, CurrentSpan(ctx), attrs...)
}

// ForceFlush exports everything buffered by both providers.
func (r *Registry) ForceFlush(ctx context.Context) error {
	return errors.Join(
		r.tp.ForceFlush(ctx),
		r.mp.ForceFlush(ctx),
	)
}

// Shutdown flushes and stops both providers and then releases the
// transport. Only the first call does any work.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() {
		r.shutdownErr = lifecycle.MultiHook(
			lifecycle.HookFunc(r.tp.Shutdown),
			lifecycle.HookFunc(r.mp.Shutdown),
			lifecycle.HookFunc(r.transport.Shutdown),
		).Run(ctx)
	})
	return r.shutdownErr
}

type registryKey struct{}

// ContextWithRegistry returns a copy of parent carrying r.
func ContextWithRegistry(parent context.Context, r *Registry) context.Context {
	return context.WithValue(parent, registryKey{}, r)
}

// RegistryFromContext returns the [Registry] stored by [ContextWithRegistry].
func RegistryFromContext(ctx context.Context) (*Registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok && r != nil
}
