// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/z5labs/funfacts/lifecycle"

	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// State of a [Bootstrapper].
type State int32

const (
	Uninitialized State = iota
	Registering
	Active
)

// String implements the [fmt.Stringer] interface.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Registering:
		return "registering"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

type options struct {
	transport       Transport
	creds           CredentialSource
	detectors       []resource.Detector
	logOutput       io.Writer
	logLevel        slog.Leveler
	exportOutput    io.Writer
	diag            *zap.Logger
	registerGlobals bool
}

// Option customizes [Initialize].
type Option func(*options)

// WithTransport uses t instead of building one from [Config.Exporter].
// Credentials are not looked up when a transport is given.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithCredentialSource replaces Application Default Credentials.
func WithCredentialSource(src CredentialSource) Option {
	return func(o *options) {
		o.creds = src
	}
}

// WithDetectors replaces the Google Cloud resource detector.
func WithDetectors(ds ...resource.Detector) Option {
	return func(o *options) {
		o.detectors = ds
	}
}

// WithLogOutput sets where correlated log records are written. Defaults to [os.Stdout].
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithLogLevel sets the minimum level of correlated log records.
func WithLogLevel(l slog.Leveler) Option {
	return func(o *options) {
		o.logLevel = l
	}
}

// WithExportOutput sets where the stdout transport writes. Defaults to [os.Stderr]
// so exported telemetry does not interleave with log records.
func WithExportOutput(w io.Writer) Option {
	return func(o *options) {
		o.exportOutput = w
	}
}

// WithDiagnostics sets the logger for failures of the pipeline itself.
func WithDiagnostics(l *zap.Logger) Option {
	return func(o *options) {
		o.diag = l
	}
}

// WithRegisterGlobals controls whether the providers, propagator and error
// handler are installed in the otel globals. Defaults to true.
func WithRegisterGlobals(b bool) Option {
	return func(o *options) {
		o.registerGlobals = b
	}
}

// Bootstrapper builds and registers the telemetry pipeline exactly once.
// The zero value is ready to use.
type Bootstrapper struct {
	mu    sync.Mutex
	state State
}

var defaultBootstrapper Bootstrapper

// Initialize builds the pipeline with the process wide [Bootstrapper].
func Initialize(ctx context.Context, cfg Config, opts ...Option) (*Registry, error) {
	return defaultBootstrapper.Initialize(ctx, cfg, opts...)
}

// State returns the current state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bootstrapper) transition(from, to State) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != from {
		return false
	}
	b.state = to
	return true
}

// Initialize builds the transport, resource and both providers and
// registers them. It returns once everything is registered. On any failure
// the pieces built so far are shut down, the state goes back to
// [Uninitialized] and a [TelemetrySetupError] is returned.
func (b *Bootstrapper) Initialize(ctx context.Context, cfg Config, opts ...Option) (*Registry, error) {
	if !b.transition(Uninitialized, Registering) {
		return nil, TelemetrySetupError{Stage: "registration", Cause: ErrAlreadyInitialized}
	}

	reg, err := initialize(ctx, cfg, opts...)
	if err != nil {
		b.transition(Registering, Uninitialized)
		return nil, err
	}
	b.transition(Registering, Active)
	return reg, nil
}

func initialize(ctx context.Context, cfg Config, opts ...Option) (*Registry, error) {
	o := &options{
		logOutput:       os.Stdout,
		logLevel:        slog.LevelDebug,
		exportOutput:    os.Stderr,
		registerGlobals: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.diag == nil {
		o.diag = NewDiagnosticLogger(os.Stderr)
	}
	cfg = cfg.withDefaults()

	if err := ctx.Err(); err != nil {
		return nil, TelemetrySetupError{Stage: "startup", Cause: err}
	}

	t, err := buildTransport(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	cleanup := []lifecycle.Hook{lifecycle.HookFunc(t.Shutdown)}
	fail := func(stage string, err error) (*Registry, error) {
		// providers stop before the transport closes
		shutdownErr := lifecycle.Reverse(cleanup...).Run(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			o.diag.Warn("failed to release partially built telemetry pipeline", zap.Error(shutdownErr))
		}
		return nil, TelemetrySetupError{Stage: stage, Cause: err}
	}

	res, err := BuildResource(ctx, ResourceConfig{
		ServiceName: cfg.ServiceName,
		ProjectID:   cfg.ProjectID,
		Detectors:   o.detectors,
	}, o.diag)
	if err != nil {
		return fail("resource", err)
	}

	tp, err := NewTracerProvider(ctx, cfg, res, t)
	if err != nil {
		return fail("tracer provider", err)
	}
	cleanup = append(cleanup, lifecycle.HookFunc(tp.Shutdown))

	mp, err := NewMeterProvider(ctx, cfg, res, t)
	if err != nil {
		return fail("meter provider", err)
	}
	cleanup = append(cleanup, lifecycle.HookFunc(mp.Shutdown))

	log := NewLogger(
		o.logOutput,
		cfg.ProjectID,
		LogLevel(o.logLevel),
		LogDiagnostics(o.diag),
	)

	if o.registerGlobals {
		otel.SetErrorHandler(errorHandler(o.diag))
		otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	}

	o.diag.Info(
		"registered telemetry providers",
		zap.String("exporter", string(t.Kind())),
		zap.String("service_name", cfg.ServiceName),
	)
	return newRegistry(tp, mp, t, log), nil
}

func buildTransport(ctx context.Context, cfg Config, o *options) (Transport, error) {
	if o.transport != nil {
		return o.transport, nil
	}

	creds := o.creds
	if cfg.Exporter != Local {
		if creds == nil {
			gcs, err := NewGoogleCredentialSource(ctx)
			if err != nil {
				return nil, TelemetrySetupError{Stage: "credentials", Cause: err}
			}
			creds = gcs
		}

		// the first token is fetched up front so bad credentials fail startup
		// instead of every export
		_, err := creds.Token(ctx)
		if err != nil {
			return nil, TelemetrySetupError{Stage: "credentials", Cause: err}
		}
	}

	t, err := NewTransport(ctx, cfg, creds, o.exportOutput)
	if err != nil {
		return nil, TelemetrySetupError{Stage: "transport", Cause: err}
	}
	return t, nil
}

func errorHandler(diag *zap.Logger) otel.ErrorHandlerFunc {
	return func(err error) {
		var exportErr ExportError
		if errors.As(err, &exportErr) {
			diag.Warn(
				"failed to export telemetry",
				zap.String("signal", string(exportErr.Signal)),
				zap.Error(exportErr.Cause),
			)
			return
		}
		diag.Warn("opentelemetry sdk error", zap.Error(err))
	}
}
