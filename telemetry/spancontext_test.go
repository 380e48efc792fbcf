// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func ExampleCurrentSpan() {
	sc := CurrentSpan(context.Background())

	fmt.Println(sc.TraceID, sc.SpanID, sc.TraceFlags)
	// Output: undefined undefined 0
}

func TestCurrentSpan(t *testing.T) {
	t.Run("will return the undefined sentinel", func(t *testing.T) {
		t.Run("if no span is active", func(t *testing.T) {
			sc := CurrentSpan(context.Background())

			if !assert.True(t, sc.IsUndefined()) {
				return
			}
			if !assert.False(t, sc.Sampled()) {
				return
			}
		})

		t.Run("if the context is nil", func(t *testing.T) {
			//nolint:staticcheck
			sc := CurrentSpan(nil)

			if !assert.Equal(t, UndefinedSpanContext, sc) {
				return
			}
		})
	})

	t.Run("will return the ids of the active span", func(t *testing.T) {
		t.Run("if a span is active", func(t *testing.T) {
			tp := sdktrace.NewTracerProvider(
				sdktrace.WithSampler(sdktrace.AlwaysSample()),
				sdktrace.WithSyncer(tracetest.NewInMemoryExporter()),
			)
			defer tp.Shutdown(context.Background())

			ctx, span := tp.Tracer("test").Start(context.Background(), "test")
			defer span.End()

			sc := CurrentSpan(ctx)
			if !assert.False(t, sc.IsUndefined()) {
				return
			}
			if !assert.Equal(t, span.SpanContext().TraceID().String(), sc.TraceID) {
				return
			}
			if !assert.Equal(t, span.SpanContext().SpanID().String(), sc.SpanID) {
				return
			}
			if !assert.Equal(t, "1", sc.TraceFlags) {
				return
			}
			if !assert.True(t, sc.Sampled()) {
				return
			}
		})
	})
}
