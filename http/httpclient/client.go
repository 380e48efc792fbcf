// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpclient provides the instrumented http.Client used for outbound API calls.
package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type retryOptions struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

type options struct {
	timeout time.Duration
	rt      http.RoundTripper
	ts      oauth2.TokenSource

	name string
	log  *zap.Logger

	ro *retryOptions
}

// Option configures the client returned by [New].
type Option func(*options)

// Name is used as the span name prefix and the named logger.
func Name(s string) Option {
	return func(o *options) {
		o.name = s
	}
}

// RoundTripper replaces [http.DefaultTransport] as the base transport.
func RoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.rt = rt
	}
}

// Timeout provides a global timeout value for the http.Client.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Logger receives one entry per attempt.
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// TokenSource authenticates every request with an OAuth2 bearer token.
func TokenSource(ts oauth2.TokenSource) Option {
	return func(o *options) {
		o.ts = ts
	}
}

// Retry retries connection errors and 5xx/429 responses up to maxRetries
// times with exponential backoff between waitMin and waitMax.
func Retry(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(o *options) {
		o.ro = &retryOptions{
			maxRetries: maxRetries,
			waitMin:    waitMin,
			waitMax:    waitMax,
		}
	}
}

// New returns a [http.Client] whose requests are traced, optionally
// retried and optionally authenticated. Retries are traced as child spans
// of the caller's span and authentication wraps the retries so a refreshed
// token is only fetched once per call.
func New(opts ...Option) *http.Client {
	o := &options{
		rt:   http.DefaultTransport,
		name: "http",
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	log := o.log.Named(o.name)

	var rt http.RoundTripper = otelhttp.NewTransport(
		o.rt,
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return o.name + " " + r.Method
		}),
	)

	if o.ro != nil {
		rc := &retryablehttp.Client{
			HTTPClient: &http.Client{
				Transport: rt,
			},
			Logger:       nil,
			RetryWaitMin: o.ro.waitMin,
			RetryWaitMax: o.ro.waitMax,
			RetryMax:     o.ro.maxRetries,
			RequestLogHook: func(_ retryablehttp.Logger, req *http.Request, attempt int) {
				log.Debug("sending http request", zap.String("url", req.URL.Redacted()), zap.Int("request_attempt_count", attempt))
			},
			ResponseLogHook: func(_ retryablehttp.Logger, resp *http.Response) {
				log.Debug("received http response", zap.String("url", resp.Request.URL.Redacted()), zap.Int("http_status_code", resp.StatusCode))
			},
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		}
		rt = &retryablehttp.RoundTripper{Client: rc}
	}

	if o.ts != nil {
		rt = &oauth2.Transport{
			Source: o.ts,
			Base:   rt,
		}
	}

	return &http.Client{
		Timeout:   o.timeout,
		Transport: rt,
	}
}
