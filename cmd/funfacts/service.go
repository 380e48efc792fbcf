// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/z5labs/funfacts"
	"github.com/z5labs/funfacts/app"
	"github.com/z5labs/funfacts/facts"
	"github.com/z5labs/funfacts/generate"
	fhttp "github.com/z5labs/funfacts/http"
	"github.com/z5labs/funfacts/http/httpclient"
	"github.com/z5labs/funfacts/telemetry"

	"go.uber.org/zap"
)

//go:embed static/index.html
var indexPage []byte

// Config is decoded from config.yaml and the optional --config file.
type Config struct {
	Service struct {
		Name string `config:"name"`
		Port uint   `config:"port"`
	} `config:"service"`

	Google struct {
		Project  string `config:"project"`
		Location string `config:"location"`
	} `config:"google"`

	Model struct {
		Name        string        `config:"name"`
		Timeout     time.Duration `config:"timeout"`
		MaxRetries  int           `config:"maxRetries"`
		TripAfter   uint32        `config:"tripAfter"`
		OpenTimeout time.Duration `config:"openTimeout"`
	} `config:"model"`

	Log struct {
		Level string `config:"level"`
	} `config:"log"`

	Telemetry telemetry.Config `config:"telemetry"`
}

// projectResolver is shared so the metadata server is asked at most once
// per value.
var projectResolver = generate.NewResolver()

func (cfg Config) projectID(ctx context.Context) (string, error) {
	if cfg.Google.Project != "" {
		return cfg.Google.Project, nil
	}
	return projectResolver.ProjectID(ctx)
}

func (cfg Config) region(ctx context.Context) string {
	if cfg.Google.Location != "" {
		return cfg.Google.Location
	}
	return projectResolver.Region(ctx)
}

var diagnostics = telemetry.NewDiagnosticLogger(os.Stderr)

// InitializeTelemetry implements the [appbuilder.TelemetryInitializer] interface.
func (cfg Config) InitializeTelemetry(ctx context.Context) (*telemetry.Registry, error) {
	projectID, err := cfg.projectID(ctx)
	if err != nil {
		return nil, err
	}

	level, err := telemetry.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	tcfg := cfg.Telemetry
	tcfg.ProjectID = projectID
	tcfg.ServiceName = cfg.Service.Name
	return telemetry.Initialize(
		ctx,
		tcfg,
		telemetry.WithLogLevel(level),
		telemetry.WithDiagnostics(diagnostics),
	)
}

func buildApp(ctx context.Context, cfg Config) (funfacts.App, error) {
	reg, ok := telemetry.RegistryFromContext(ctx)
	if !ok {
		return nil, errors.New("telemetry registry is missing from the build context")
	}

	projectID, err := cfg.projectID(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := telemetry.NewGoogleCredentialSource(ctx)
	if err != nil {
		return nil, err
	}

	hc := httpclient.New(
		httpclient.Name("vertex"),
		httpclient.Logger(diagnostics),
		httpclient.Retry(cfg.Model.MaxRetries, 500*time.Millisecond, 5*time.Second),
		httpclient.TokenSource(telemetry.TokenSource(context.WithoutCancel(ctx), creds)),
	)

	vertex, err := generate.NewVertex(ctx, generate.VertexConfig{
		Project:    projectID,
		Location:   cfg.region(ctx),
		HTTPClient: hc,
	})
	if err != nil {
		return nil, err
	}

	gen := generate.WithCircuitBreaker(
		vertex,
		generate.CircuitName("vertex"),
		generate.CircuitLogger(diagnostics),
		generate.TripAfter(cfg.Model.TripAfter),
		generate.OpenStateTimeout(cfg.Model.OpenTimeout),
	)

	rt := fhttp.NewRuntime(
		fhttp.ListenOnPort(cfg.Service.Port),
		fhttp.LogHandler(reg.Logger().Handler()),
		fhttp.Readiness(gen),
		fhttp.Handle("GET /{$}", http.HandlerFunc(serveIndex)),
		fhttp.Handle("GET /facts", facts.NewHandler(
			gen,
			reg,
			facts.Model(cfg.Model.Name),
			facts.Timeout(cfg.Model.Timeout),
		)),
	)

	diagnostics.Info(
		"built service",
		zap.String("model", cfg.Model.Name),
		zap.Uint("port", cfg.Service.Port),
	)
	return app.Recover(app.WithSignalNotifications(rt, os.Interrupt, syscall.SIGTERM)), nil
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}
