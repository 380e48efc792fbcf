// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
)

const undefined = "undefined"

// SpanContext is a read-only snapshot of the identifiers of the span
// active in a [context.Context].
type SpanContext struct {
	TraceID    string
	SpanID     string
	TraceFlags string
}

// UndefinedSpanContext is returned by [CurrentSpan] when no span is active.
var UndefinedSpanContext = SpanContext{
	TraceID:    undefined,
	SpanID:     undefined,
	TraceFlags: "0",
}

// IsUndefined reports whether sc is the [UndefinedSpanContext] sentinel.
func (sc SpanContext) IsUndefined() bool {
	return sc == UndefinedSpanContext
}

// Sampled reports whether the sampled bit is set in the trace flags.
func (sc SpanContext) Sampled() bool {
	flags, err := strconv.ParseUint(sc.TraceFlags, 10, 8)
	if err != nil {
		return false
	}
	return trace.TraceFlags(flags).IsSampled()
}

// CurrentSpan returns the identifiers of the span carried by ctx. It never
// fails; if no valid span is present, e.g. outside of any instrumented
// request or before providers are registered, [UndefinedSpanContext] is returned.
func CurrentSpan(ctx context.Context) SpanContext {
	if ctx == nil {
		return UndefinedSpanContext
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return UndefinedSpanContext
	}
	return SpanContext{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		TraceFlags: strconv.Itoa(int(sc.TraceFlags())),
	}
}
