// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package facts serves generated fun facts about a subject.
package facts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/funfacts/generate"
	"github.com/z5labs/funfacts/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultSubject is used when the request names no subject.
	DefaultSubject = "dog"

	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 60 * time.Second

	// CounterName counts successful model calls.
	CounterName = "model_call_counter"
)

// Prompt returns the model prompt for subject.
func Prompt(subject string) string {
	return fmt.Sprintf("Give me 10 fun facts about %s. Return this as html without backticks.", subject)
}

type options struct {
	model   string
	timeout time.Duration
}

// Option configures a [Handler].
type Option func(*options)

// Model sets the model name passed to the generator.
func Model(name string) Option {
	return func(o *options) {
		o.model = name
	}
}

// Timeout bounds every model call.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Handler answers GET /facts?subject=<subject>.
type Handler struct {
	gen     generate.Generator
	rec     telemetry.Recorder
	model   string
	timeout time.Duration
}

// NewHandler returns a [Handler] generating content with gen and
// reporting through rec.
func NewHandler(gen generate.Generator, rec telemetry.Recorder, opts ...Option) *Handler {
	o := &options{
		model:   generate.DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.model == "" {
		o.model = generate.DefaultModel
	}
	return &Handler{
		gen:     gen,
		rec:     rec,
		model:   o.model,
		timeout: o.timeout,
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject := subjectOf(r)
	prompt := Prompt(subject)

	ctx, span := h.rec.Tracer().Start(
		r.Context(),
		"generate fun facts",
		trace.WithAttributes(
			attribute.String("subject", subject),
			attribute.String("model", h.model),
		),
	)
	defer span.End()

	genCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	content, err := h.gen.GenerateContent(genCtx, h.model, prompt)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		h.rec.EmitLog(
			ctx,
			slog.LevelError,
			"failed to generate content",
			slog.String("subject", subject),
			slog.String("prompt", prompt),
			slog.String("error", err.Error()),
		)

		w.WriteHeader(statusCodeOf(err))
		io.WriteString(w, err.Error())
		return
	}

	h.rec.EmitLog(
		ctx,
		slog.LevelDebug,
		"Content is generated",
		slog.String("subject", subject),
		slog.String("prompt", prompt),
		slog.String("response", content.Text),
	)

	err = h.rec.RecordMetric(ctx, telemetry.MetricEvent{
		Name:   CounterName,
		Value:  1,
		Labels: map[string]string{"language": "go"},
	})
	if err != nil {
		otel.Handle(err)
	}

	w.WriteHeader(http.StatusOK)
	io.WriteString(w, content.Text)
}

func subjectOf(r *http.Request) string {
	q := r.URL.Query()
	if s := q.Get("subject"); s != "" {
		return s
	}
	if s := q.Get("animal"); s != "" {
		return s
	}
	return DefaultSubject
}

func statusCodeOf(err error) int {
	switch {
	case generate.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
