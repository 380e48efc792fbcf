// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package telemetry builds the tracing and metrics pipeline of the service
// and correlates log records with the active trace.
//
// A process calls [Initialize] once, before serving any request. It returns
// a [Registry] which hands out the tracer and meter, records counter
// increments and writes correlated log records. Spans and metrics leave the
// process through one of three transports:
//
//   - direct: Cloud Trace and Cloud Monitoring API clients
//   - otlp: OTLP over a shared, authenticated gRPC channel (the default)
//   - stdout: JSON on a local writer
//
// Export failures never surface to callers. They are wrapped in an
// [ExportError] and reported on the diagnostics logger.
package telemetry
