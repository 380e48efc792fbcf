// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http provides the HTTP server of the service.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/z5labs/funfacts/health"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type runtimeOptions struct {
	port            uint
	mux             *http.ServeMux
	logHandler      slog.Handler
	readiness       []health.Metric
	shutdownTimeout time.Duration
}

// RuntimeOption configures a [Runtime].
type RuntimeOption func(*runtimeOptions)

// ListenOnPort will configure the HTTP server to listen on the given port.
//
// Default port is 8080.
func ListenOnPort(port uint) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.port = port
	}
}

// LogHandler receives the server lifecycle logs.
func LogHandler(h slog.Handler) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.logHandler = h
	}
}

// Handle registers a http.Handler for the given pattern. Patterns use the
// [http.ServeMux] syntax, including an optional leading method.
func Handle(pattern string, h http.Handler) RuntimeOption {
	return func(ro *runtimeOptions) {
		registerEndpoint(ro.mux, pattern, h)
	}
}

// HandleFunc registers a http.HandlerFunc for the given pattern.
func HandleFunc(pattern string, f func(http.ResponseWriter, *http.Request)) RuntimeOption {
	return Handle(pattern, http.HandlerFunc(f))
}

// Readiness adds m to the readiness check. The service only reports
// ready when it is serving and every added metric is healthy.
func Readiness(m health.Metric) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.readiness = append(ro.readiness, m)
	}
}

// ShutdownTimeout bounds how long in flight requests may take to finish
// once the server stops.
//
// Default is 10 seconds.
func ShutdownTimeout(d time.Duration) RuntimeOption {
	return func(ro *runtimeOptions) {
		ro.shutdownTimeout = d
	}
}

// Runtime serves HTTP until its context is cancelled.
type Runtime struct {
	port   uint
	listen func(string, string) (net.Listener, error)

	log *slog.Logger

	h               http.Handler
	shutdownTimeout time.Duration

	started   *health.Started
	liveness  *health.Liveness
	readiness *health.Readiness
}

// NewRuntime returns a [Runtime] which also serves the startup, liveness
// and readiness probes under /health.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	ros := &runtimeOptions{
		port:            8080,
		mux:             http.NewServeMux(),
		logHandler:      slog.DiscardHandler,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(ros)
	}

	rt := &Runtime{
		port:            ros.port,
		listen:          net.Listen,
		log:             slog.New(ros.logHandler),
		h:               ros.mux,
		shutdownTimeout: ros.shutdownTimeout,
		started:         &health.Started{},
		liveness:        &health.Liveness{},
		readiness:       &health.Readiness{},
	}

	ready := append([]health.Metric{rt.readiness}, ros.readiness...)
	registerEndpoint(ros.mux, "GET /health/startup", rt.started)
	registerEndpoint(ros.mux, "GET /health/liveness", rt.liveness)
	registerEndpoint(ros.mux, "GET /health/readiness", health.Handler(health.And(ready...)))

	return rt
}

// Run listens on the configured port and serves requests until ctx is
// cancelled. A cancelled ctx is not an error.
func (rt *Runtime) Run(ctx context.Context) error {
	ls, err := rt.listen("tcp", fmt.Sprintf(":%d", rt.port))
	if err != nil {
		rt.log.Error("failed to listen for connections", slog.Any("error", err))
		return err
	}

	s := &http.Server{
		Handler: otelhttp.NewHandler(
			rt.h,
			"server",
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		rt.readiness.NotReady()

		ctx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout)
		defer cancel()
		defer rt.log.Info("shut down service")

		rt.log.Info("shutting down service")
		return s.Shutdown(ctx)
	})
	g.Go(func() error {
		rt.started.Started()
		rt.liveness.Alive()
		rt.readiness.Ready()
		rt.log.Info("started service", slog.String("addr", ls.Addr().String()))
		return s.Serve(ls)
	})

	err = g.Wait()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	rt.log.Error("service encountered unexpected error", slog.Any("error", err))
	return err
}

func registerEndpoint(mux *http.ServeMux, pattern string, h http.Handler) {
	mux.Handle(pattern, withRoute(routeOf(pattern), h))
}

// routeOf strips the method and host from a mux pattern.
func routeOf(pattern string) string {
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = strings.TrimSpace(pattern[i+1:])
	}
	if i := strings.IndexByte(pattern, '/'); i > 0 {
		pattern = pattern[i:]
	}
	return pattern
}

func withRoute(route string, h http.Handler) http.Handler {
	routeAttr := attribute.String("http.route", route)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		span.SetName(r.Method + " " + route)
		span.SetAttributes(routeAttr)

		if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
			labeler.Add(routeAttr)
		}
		h.ServeHTTP(w, r)
	})
}
