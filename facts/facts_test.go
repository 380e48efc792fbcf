// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package facts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/z5labs/funfacts/generate"
	"github.com/z5labs/funfacts/telemetry"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type logEntry struct {
	Level slog.Level
	Msg   string
	SC    telemetry.SpanContext
	Attrs map[string]string
}

type fakeRecorder struct {
	tp *sdktrace.TracerProvider

	mu      sync.Mutex
	logs    []logEntry
	metrics []telemetry.MetricEvent
}

func newFakeRecorder(exp sdktrace.SpanExporter) *fakeRecorder {
	return &fakeRecorder{
		tp: sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithSyncer(exp),
		),
	}
}

func (r *fakeRecorder) Tracer() trace.Tracer {
	return r.tp.Tracer("facts_test")
}

func (r *fakeRecorder) CurrentSpan(ctx context.Context) telemetry.SpanContext {
	return telemetry.CurrentSpan(ctx)
}

func (r *fakeRecorder) RecordMetric(ctx context.Context, ev telemetry.MetricEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, ev)
	return nil
}

func (r *fakeRecorder) EmitLog(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value.String()
	}
	r.logs = append(r.logs, logEntry{
		Level: level,
		Msg:   msg,
		SC:    telemetry.CurrentSpan(ctx),
		Attrs: m,
	})
}

func staticGenerator(text string, err error) generate.Generator {
	return generate.GeneratorFunc(func(ctx context.Context, model, prompt string) (generate.Content, error) {
		if err != nil {
			return generate.Content{}, err
		}
		return generate.Content{Text: text}, nil
	})
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("will respond with the generated html", func(t *testing.T) {
		t.Run("if the model call succeeds", func(t *testing.T) {
			exp := tracetest.NewInMemoryExporter()
			rec := newFakeRecorder(exp)

			var gotModel, gotPrompt string
			gen := generate.GeneratorFunc(func(ctx context.Context, model, prompt string) (generate.Content, error) {
				gotModel = model
				gotPrompt = prompt
				return generate.Content{Text: "<ul><li>cats purr</li></ul>"}, nil
			})
			h := NewHandler(gen, rec, Model("gemini-test"))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/facts?subject=cat", nil)
			h.ServeHTTP(w, r)

			resp := w.Result()
			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type")) {
				return
			}
			body, _ := io.ReadAll(resp.Body)
			if !assert.Equal(t, "<ul><li>cats purr</li></ul>", string(body)) {
				return
			}
			if !assert.Equal(t, "gemini-test", gotModel) {
				return
			}
			if !assert.Equal(t, "Give me 10 fun facts about cat. Return this as html without backticks.", gotPrompt) {
				return
			}

			if !assert.Len(t, rec.logs, 1) {
				return
			}
			entry := rec.logs[0]
			if !assert.Equal(t, slog.LevelDebug, entry.Level) {
				return
			}
			if !assert.Equal(t, "Content is generated", entry.Msg) {
				return
			}
			if !assert.Equal(t, "cat", entry.Attrs["subject"]) {
				return
			}
			if !assert.Equal(t, gotPrompt, entry.Attrs["prompt"]) {
				return
			}
			if !assert.Equal(t, "<ul><li>cats purr</li></ul>", entry.Attrs["response"]) {
				return
			}
			if !assert.False(t, entry.SC.IsUndefined()) {
				return
			}

			if !assert.Len(t, rec.metrics, 1) {
				return
			}
			if !assert.Equal(t, telemetry.MetricEvent{
				Name:   "model_call_counter",
				Value:  1,
				Labels: map[string]string{"language": "go"},
			}, rec.metrics[0]) {
				return
			}

			spans := exp.GetSpans()
			if !assert.Len(t, spans, 1) {
				return
			}
			if !assert.Equal(t, codes.Unset, spans[0].Status.Code) {
				return
			}
		})
	})

	t.Run("will fall back to a default subject", func(t *testing.T) {
		testCases := []struct {
			Name    string
			Target  string
			Subject string
		}{
			{Name: "if only the animal parameter is set", Target: "/facts?animal=owl", Subject: "owl"},
			{Name: "if no parameter is set", Target: "/facts", Subject: "dog"},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				rec := newFakeRecorder(tracetest.NewInMemoryExporter())

				var gotPrompt string
				gen := generate.GeneratorFunc(func(ctx context.Context, model, prompt string) (generate.Content, error) {
					gotPrompt = prompt
					return generate.Content{Text: "ok"}, nil
				})
				h := NewHandler(gen, rec)

				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, testCase.Target, nil))

				if !assert.Equal(t, Prompt(testCase.Subject), gotPrompt) {
					return
				}
			})
		}
	})

	t.Run("will respond with the error message", func(t *testing.T) {
		testCases := []struct {
			Name       string
			Err        error
			StatusCode int
		}{
			{
				Name:       "if the model call fails",
				Err:        generate.GenerationError{Model: "m", Cause: errors.New("quota exceeded")},
				StatusCode: http.StatusBadGateway,
			},
			{
				Name:       "if the model call times out",
				Err:        generate.GenerationError{Model: "m", Cause: context.DeadlineExceeded},
				StatusCode: http.StatusGatewayTimeout,
			},
			{
				Name:       "if the circuit breaker is open",
				Err:        generate.GenerationError{Model: "m", Cause: gobreaker.ErrOpenState},
				StatusCode: http.StatusServiceUnavailable,
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				exp := tracetest.NewInMemoryExporter()
				rec := newFakeRecorder(exp)
				h := NewHandler(staticGenerator("", testCase.Err), rec)

				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/facts?subject=cat", nil))

				resp := w.Result()
				if !assert.Equal(t, testCase.StatusCode, resp.StatusCode) {
					return
				}
				if !assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type")) {
					return
				}
				body, _ := io.ReadAll(resp.Body)
				if !assert.Equal(t, testCase.Err.Error(), string(body)) {
					return
				}

				if !assert.Len(t, rec.logs, 1) {
					return
				}
				entry := rec.logs[0]
				if !assert.Equal(t, slog.LevelError, entry.Level) {
					return
				}
				if !assert.Equal(t, "failed to generate content", entry.Msg) {
					return
				}
				if !assert.Equal(t, testCase.Err.Error(), entry.Attrs["error"]) {
					return
				}
				if !assert.Empty(t, rec.metrics) {
					return
				}

				spans := exp.GetSpans()
				if !assert.Len(t, spans, 1) {
					return
				}
				if !assert.Equal(t, codes.Error, spans[0].Status.Code) {
					return
				}
			})
		}
	})

	t.Run("will time out the model call", func(t *testing.T) {
		t.Run("if the model does not answer within the timeout", func(t *testing.T) {
			rec := newFakeRecorder(tracetest.NewInMemoryExporter())
			gen := generate.GeneratorFunc(func(ctx context.Context, model, prompt string) (generate.Content, error) {
				<-ctx.Done()
				return generate.Content{}, generate.GenerationError{Model: model, Cause: ctx.Err()}
			})
			h := NewHandler(gen, rec, Timeout(10*time.Millisecond))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/facts", nil))

			if !assert.Equal(t, http.StatusGatewayTimeout, w.Result().StatusCode) {
				return
			}
		})
	})
}

type failingSpanExporter struct{}

func (failingSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return errors.New("connection refused")
}

func (failingSpanExporter) Shutdown(context.Context) error { return nil }

type failingMetricExporter struct{}

func (failingMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (failingMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (failingMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error {
	return errors.New("connection refused")
}

func (failingMetricExporter) ForceFlush(context.Context) error { return nil }
func (failingMetricExporter) Shutdown(context.Context) error   { return nil }

type unreachableTransport struct{}

func (unreachableTransport) Kind() telemetry.TransportKind {
	return telemetry.AuthenticatedStream
}

func (unreachableTransport) SpanExporter(context.Context, *resource.Resource) (sdktrace.SpanExporter, error) {
	return failingSpanExporter{}, nil
}

func (unreachableTransport) MetricExporter(context.Context, *resource.Resource) (sdkmetric.Exporter, error) {
	return failingMetricExporter{}, nil
}

func (unreachableTransport) Shutdown(context.Context) error { return nil }

func TestHandler_ServeHTTP_withRegistry(t *testing.T) {
	t.Run("will write exactly one correlated log record", func(t *testing.T) {
		t.Run("if the telemetry backend is unreachable", func(t *testing.T) {
			var b telemetry.Bootstrapper
			var logs bytes.Buffer
			reg, err := b.Initialize(
				context.Background(),
				telemetry.Config{
					ProjectID:      "my-project",
					BatchTimeout:   10 * time.Millisecond,
					ExportInterval: 10 * time.Millisecond,
				},
				telemetry.WithTransport(unreachableTransport{}),
				telemetry.WithRegisterGlobals(false),
				telemetry.WithLogOutput(&logs),
				telemetry.WithDiagnostics(zap.NewNop()),
				telemetry.WithDetectors(),
			)
			if !assert.Nil(t, err) {
				return
			}
			defer reg.Shutdown(context.Background())

			h := NewHandler(staticGenerator("<p>facts</p>", nil), reg)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/facts?subject=cat", nil))

			if !assert.Equal(t, http.StatusOK, w.Result().StatusCode) {
				return
			}

			var records []map[string]any
			dec := json.NewDecoder(&logs)
			for dec.More() {
				var record map[string]any
				if !assert.Nil(t, dec.Decode(&record)) {
					return
				}
				records = append(records, record)
			}
			if !assert.Len(t, records, 1) {
				return
			}
			record := records[0]
			if !assert.Equal(t, "DEBUG", record["severity"]) {
				return
			}
			if !assert.Equal(t, "Content is generated", record["message"]) {
				return
			}
			traceName, _ := record[telemetry.TraceKey].(string)
			if !assert.Regexp(t, `^projects/my-project/traces/[0-9a-f]{32}$`, traceName) {
				return
			}
			spanID, _ := record[telemetry.SpanIDKey].(string)
			if !assert.Regexp(t, `^[0-9a-f]{16}$`, spanID) {
				return
			}
		})
	})
}
