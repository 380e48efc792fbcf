// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type healthyMetric bool

func (m healthyMetric) Healthy(context.Context) bool {
	return bool(m)
}

func TestBinary_Toggle(t *testing.T) {
	t.Run("will make it unhealthy", func(t *testing.T) {
		t.Run("if the current state is healthy", func(t *testing.T) {
			var m Binary
			m.Toggle()
			assert.False(t, m.Healthy(context.Background()))
		})
	})

	t.Run("will make it healthy", func(t *testing.T) {
		t.Run("if the current state is unhealthy", func(t *testing.T) {
			var m Binary
			m.Toggle()
			m.Toggle()
			assert.True(t, m.Healthy(context.Background()))
		})
	})
}

func TestAnd(t *testing.T) {
	testCases := []struct {
		Name    string
		Metrics []Metric
		Healthy bool
	}{
		{Name: "if there are no metrics", Healthy: true},
		{Name: "if all metrics are healthy", Metrics: []Metric{healthyMetric(true), healthyMetric(true)}, Healthy: true},
		{Name: "if one metric is unhealthy", Metrics: []Metric{healthyMetric(true), healthyMetric(false)}, Healthy: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			m := And(testCase.Metrics...)
			assert.Equal(t, testCase.Healthy, m.Healthy(context.Background()))
		})
	}
}

func TestOr(t *testing.T) {
	testCases := []struct {
		Name    string
		Metrics []Metric
		Healthy bool
	}{
		{Name: "if there are no metrics", Healthy: false},
		{Name: "if one metric is healthy", Metrics: []Metric{healthyMetric(false), healthyMetric(true)}, Healthy: true},
		{Name: "if all metrics are unhealthy", Metrics: []Metric{healthyMetric(false), healthyMetric(false)}, Healthy: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			m := Or(testCase.Metrics...)
			assert.Equal(t, testCase.Healthy, m.Healthy(context.Background()))
		})
	}
}

func TestNot(t *testing.T) {
	t.Run("will negate the metric", func(t *testing.T) {
		assert.False(t, Not(healthyMetric(true)).Healthy(context.Background()))
		assert.True(t, Not(healthyMetric(false)).Healthy(context.Background()))
	})
}

func TestReadiness_ServeHTTP(t *testing.T) {
	t.Run("will return 503", func(t *testing.T) {
		t.Run("if the service is not ready yet", func(t *testing.T) {
			var r Readiness

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		})
	})

	t.Run("will return 200", func(t *testing.T) {
		t.Run("if the service is ready", func(t *testing.T) {
			var r Readiness
			r.Ready()

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))

			assert.Equal(t, http.StatusOK, w.Code)
		})
	})
}

func TestHandler(t *testing.T) {
	t.Run("will return the metric", func(t *testing.T) {
		t.Run("if it already implements http.Handler", func(t *testing.T) {
			l := &Liveness{}
			if !assert.Equal(t, l, Handler(l)) {
				return
			}
		})
	})

	t.Run("will report the metric state", func(t *testing.T) {
		testCases := []struct {
			Name       string
			Metric     Metric
			StatusCode int
		}{
			{Name: "if the metric is healthy", Metric: healthyMetric(true), StatusCode: http.StatusOK},
			{Name: "if the metric is unhealthy", Metric: healthyMetric(false), StatusCode: http.StatusServiceUnavailable},
			{Name: "if a combined metric is unhealthy", Metric: And(&Started{}, healthyMetric(true)), StatusCode: http.StatusServiceUnavailable},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				w := httptest.NewRecorder()
				Handler(testCase.Metric).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

				assert.Equal(t, testCase.StatusCode, w.Code)
			})
		}
	})
}
