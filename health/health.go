// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether parts of the service can take traffic.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
)

// Metric represents anything that can report its health status.
type Metric interface {
	Healthy(context.Context) bool
}

// MetricFunc implements [Metric] for funcs.
type MetricFunc func(context.Context) bool

// Healthy implements the [Metric] interface.
func (f MetricFunc) Healthy(ctx context.Context) bool {
	return f(ctx)
}

// Binary is a [Metric] which is either healthy or not.
// The zero value is healthy.
type Binary struct {
	unhealthy atomic.Bool
}

// Toggle flips the state of b.
func (b *Binary) Toggle() {
	for {
		cur := b.unhealthy.Load()
		if b.unhealthy.CompareAndSwap(cur, !cur) {
			return
		}
	}
}

// Healthy implements the [Metric] interface.
func (b *Binary) Healthy(context.Context) bool {
	return !b.unhealthy.Load()
}

type andMetric []Metric

// And is healthy only when every one of metrics is healthy.
func And(metrics ...Metric) Metric {
	return andMetric(metrics)
}

func (ms andMetric) Healthy(ctx context.Context) bool {
	for _, m := range ms {
		if !m.Healthy(ctx) {
			return false
		}
	}
	return true
}

type orMetric []Metric

// Or is healthy when at least one of metrics is healthy.
func Or(metrics ...Metric) Metric {
	return orMetric(metrics)
}

func (ms orMetric) Healthy(ctx context.Context) bool {
	for _, m := range ms {
		if m.Healthy(ctx) {
			return true
		}
	}
	return false
}

type notMetric struct {
	m Metric
}

// Not negates m.
func Not(m Metric) Metric {
	return notMetric{m: m}
}

func (n notMetric) Healthy(ctx context.Context) bool {
	return !n.m.Healthy(ctx)
}

// Started reports whether the service finished starting up.
// The zero value has not started.
type Started struct {
	started atomic.Bool
}

// Started marks the service as started.
func (s *Started) Started() {
	s.started.Store(true)
}

// Healthy implements the [Metric] interface.
func (s *Started) Healthy(context.Context) bool {
	return s.started.Load()
}

// ServeHTTP implements the [http.Handler] interface.
func (s *Started) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serve(w, r, s)
}

// Liveness reports whether the service should be restarted.
// The zero value is not alive.
type Liveness struct {
	alive atomic.Bool
}

// Alive marks the service as alive.
func (l *Liveness) Alive() {
	l.alive.Store(true)
}

// Dead marks the service as needing a restart.
func (l *Liveness) Dead() {
	l.alive.Store(false)
}

// Healthy implements the [Metric] interface.
func (l *Liveness) Healthy(context.Context) bool {
	return l.alive.Load()
}

// ServeHTTP implements the [http.Handler] interface.
func (l *Liveness) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	serve(w, r, l)
}

// Readiness reports whether the service can take traffic.
// The zero value is not ready.
type Readiness struct {
	ready atomic.Bool
}

// Ready marks the service as ready for traffic.
func (r *Readiness) Ready() {
	r.ready.Store(true)
}

// NotReady stops traffic from being routed to the service.
func (r *Readiness) NotReady() {
	r.ready.Store(false)
}

// Healthy implements the [Metric] interface.
func (r *Readiness) Healthy(context.Context) bool {
	return r.ready.Load()
}

// ServeHTTP implements the [http.Handler] interface.
func (r *Readiness) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	serve(w, req, r)
}

// Handler serves the state of m. Healthy metrics answer 200 and
// unhealthy ones 503. A metric which already is a [http.Handler] is
// returned as is.
func Handler(m Metric) http.Handler {
	if h, ok := m.(http.Handler); ok {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, m)
	})
}

func serve(w http.ResponseWriter, r *http.Request, m Metric) {
	if m.Healthy(r.Context()) {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}
