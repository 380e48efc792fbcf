// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sync"
	"time"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// TransportKind tags the export strategy selected at configuration time.
type TransportKind string

const (
	// DirectPush exports through the Cloud Trace and Cloud Monitoring APIs.
	DirectPush TransportKind = "direct"

	// AuthenticatedStream exports OTLP over a TLS gRPC channel carrying
	// per-call bearer tokens.
	AuthenticatedStream TransportKind = "otlp"

	// Local writes spans and metrics as JSON to a writer. Meant for development.
	Local TransportKind = "stdout"
)

// Transport delivers spans and metrics to a backend. Implementations must
// support concurrent use by the span processor and the metric reader.
type Transport interface {
	Kind() TransportKind
	SpanExporter(context.Context, *resource.Resource) (sdktrace.SpanExporter, error)
	MetricExporter(context.Context, *resource.Resource) (sdkmetric.Exporter, error)
	Shutdown(context.Context) error
}

// UnknownTransportError is returned by [NewTransport] for an unsupported [TransportKind].
type UnknownTransportError struct {
	Kind TransportKind
}

// Error implements the [builtin.error] interface.
func (e UnknownTransportError) Error() string {
	return fmt.Sprintf("unknown telemetry exporter: %q", e.Kind)
}

// NewTransport builds the [Transport] selected by cfg.Exporter.
func NewTransport(ctx context.Context, cfg Config, creds CredentialSource, out io.Writer) (Transport, error) {
	cfg = cfg.withDefaults()
	switch cfg.Exporter {
	case DirectPush:
		return NewDirectPush(ctx, cfg.ProjectID, cfg.ResourcePrefix, creds), nil
	case AuthenticatedStream:
		return NewAuthenticatedStream(cfg.Endpoint, creds, cfg.ExportTimeout)
	case Local:
		return NewLocal(out), nil
	default:
		return nil, UnknownTransportError{Kind: cfg.Exporter}
	}
}

type directPush struct {
	projectID  string
	filter     attribute.Filter
	clientOpts []option.ClientOption
}

// NewDirectPush returns a [Transport] which pushes spans to Cloud Trace and
// metrics to Cloud Monitoring. Only resource attributes whose key starts
// with resourcePrefix are forwarded.
func NewDirectPush(ctx context.Context, projectID, resourcePrefix string, creds CredentialSource) Transport {
	return directPush{
		projectID: projectID,
		filter:    PrefixFilter(resourcePrefix),
		clientOpts: []option.ClientOption{
			option.WithTokenSource(TokenSource(ctx, creds)),
			option.WithTelemetryDisabled(),
		},
	}
}

// Kind implements the [Transport] interface.
func (directPush) Kind() TransportKind {
	return DirectPush
}

// SpanExporter implements the [Transport] interface.
func (t directPush) SpanExporter(ctx context.Context, res *resource.Resource) (sdktrace.SpanExporter, error) {
	exp, err := texporter.New(
		texporter.WithProjectID(t.projectID),
		texporter.WithTraceClientOptions(t.clientOpts),
	)
	if err != nil {
		return nil, err
	}
	return &filteringSpanExporter{
		SpanExporter: exp,
		filter:       t.filter,
	}, nil
}

// MetricExporter implements the [Transport] interface.
func (t directPush) MetricExporter(ctx context.Context, res *resource.Resource) (sdkmetric.Exporter, error) {
	return mexporter.New(
		mexporter.WithProjectID(t.projectID),
		mexporter.WithMonitoringClientOptions(t.clientOpts...),
		mexporter.WithFilteredResourceAttributes(t.filter),
	)
}

// Shutdown implements the [Transport] interface. The exporters own their
// API clients so there is nothing shared to release.
func (directPush) Shutdown(context.Context) error {
	return nil
}

type authenticatedStream struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// StreamOption customizes the gRPC channel of [NewAuthenticatedStream].
type StreamOption func(*[]grpc.DialOption)

// WithDialOptions appends dial options, e.g. to replace TLS in tests.
func WithDialOptions(opts ...grpc.DialOption) StreamOption {
	return func(dopts *[]grpc.DialOption) {
		*dopts = append(*dopts, opts...)
	}
}

// NewAuthenticatedStream returns a [Transport] which exports OTLP over a
// single shared gRPC channel to target. Every call carries a bearer token
// fetched from creds.
func NewAuthenticatedStream(target string, creds CredentialSource, timeout time.Duration, opts ...StreamOption) (Transport, error) {
	dopts := []grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})),
		grpc.WithPerRPCCredentials(PerRPCCredentials(creds)),
	}
	for _, opt := range opts {
		opt(&dopts)
	}

	conn, err := grpc.NewClient(target, dopts...)
	if err != nil {
		return nil, err
	}
	return authenticatedStream{
		conn:    conn,
		timeout: timeout,
	}, nil
}

// Kind implements the [Transport] interface.
func (authenticatedStream) Kind() TransportKind {
	return AuthenticatedStream
}

// SpanExporter implements the [Transport] interface.
func (t authenticatedStream) SpanExporter(ctx context.Context, _ *resource.Resource) (sdktrace.SpanExporter, error) {
	return otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithGRPCConn(t.conn),
		otlptracegrpc.WithTimeout(t.timeout),
	)
}

// MetricExporter implements the [Transport] interface.
func (t authenticatedStream) MetricExporter(ctx context.Context, _ *resource.Resource) (sdkmetric.Exporter, error) {
	return otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithGRPCConn(t.conn),
		otlpmetricgrpc.WithTimeout(t.timeout),
	)
}

// Shutdown implements the [Transport] interface. The exporters do not close
// a channel they were given so it is closed here.
func (t authenticatedStream) Shutdown(context.Context) error {
	return t.conn.Close()
}

type local struct {
	w io.Writer
}

// NewLocal returns a [Transport] which writes spans and metrics to w.
func NewLocal(w io.Writer) Transport {
	return local{w: w}
}

// Kind implements the [Transport] interface.
func (local) Kind() TransportKind {
	return Local
}

// SpanExporter implements the [Transport] interface.
func (t local) SpanExporter(context.Context, *resource.Resource) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(t.w))
}

// MetricExporter implements the [Transport] interface.
func (t local) MetricExporter(context.Context, *resource.Resource) (sdkmetric.Exporter, error) {
	return stdoutmetric.New(stdoutmetric.WithWriter(t.w))
}

// Shutdown implements the [Transport] interface.
func (local) Shutdown(context.Context) error {
	return nil
}

// filteringSpanExporter rewrites the resource of every span so only the
// attributes accepted by filter leave the process.
type filteringSpanExporter struct {
	sdktrace.SpanExporter
	filter attribute.Filter

	mu       sync.Mutex
	source   *resource.Resource
	filtered *resource.Resource
}

func (e *filteringSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	out := make([]sdktrace.ReadOnlySpan, len(spans))
	for i, s := range spans {
		out[i] = filteredSpan{
			ReadOnlySpan: s,
			res:          e.resourceFor(s.Resource()),
		}
	}
	return e.SpanExporter.ExportSpans(ctx, out)
}

func (e *filteringSpanExporter) resourceFor(res *resource.Resource) *resource.Resource {
	e.mu.Lock()
	defer e.mu.Unlock()

	if res != e.source || e.filtered == nil {
		e.source = res
		e.filtered = FilterResource(res, e.filter)
	}
	return e.filtered
}

type filteredSpan struct {
	sdktrace.ReadOnlySpan
	res *resource.Resource
}

func (s filteredSpan) Resource() *resource.Resource {
	return s.res
}

type taggedSpanExporter struct {
	sdktrace.SpanExporter
}

func (e taggedSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	err := e.SpanExporter.ExportSpans(ctx, spans)
	if err == nil {
		return nil
	}
	return ExportError{Signal: SignalTraces, Cause: err}
}

type taggedMetricExporter struct {
	sdkmetric.Exporter
}

func (e taggedMetricExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	err := e.Exporter.Export(ctx, rm)
	if err == nil {
		return nil
	}
	return ExportError{Signal: SignalMetrics, Cause: err}
}
