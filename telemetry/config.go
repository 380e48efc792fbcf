// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import "time"

// Default values applied by [Config.withDefaults].
const (
	DefaultServiceName    = "funfacts"
	DefaultEndpoint       = "telemetry.googleapis.com:443"
	DefaultExportInterval = time.Second
	DefaultExportTimeout  = 2 * time.Second
	DefaultBatchTimeout   = 100 * time.Millisecond
	DefaultMaxQueueSize   = 2048
	DefaultBatchSize      = 512
	DefaultResourcePrefix = "service."
)

// SpanProcessorKind selects how finished spans are handed to the exporter.
type SpanProcessorKind string

const (
	// QueueSpanProcessor buffers spans in a bounded drop-oldest queue
	// drained by a background worker.
	QueueSpanProcessor SpanProcessorKind = "queue"

	// SimpleSpanProcessor exports every span synchronously when it ends.
	SimpleSpanProcessor SpanProcessorKind = "simple"
)

// Config configures the telemetry pipeline.
type Config struct {
	ServiceName string `config:"serviceName"`
	ProjectID   string `config:"projectId"`

	// Exporter selects the [Transport]: direct, otlp or stdout.
	Exporter TransportKind `config:"exporter"`

	// Endpoint is the gRPC target of the otlp transport.
	Endpoint string `config:"endpoint"`

	// ResourcePrefix restricts which resource attributes the direct
	// transport forwards to the backend.
	ResourcePrefix string `config:"resourcePrefix"`

	ExportInterval time.Duration `config:"exportInterval"`
	ExportTimeout  time.Duration `config:"exportTimeout"`

	SpanProcessor SpanProcessorKind `config:"spanProcessor"`
	BatchTimeout  time.Duration     `config:"batchTimeout"`
	MaxQueueSize  int               `config:"maxQueueSize"`
	BatchSize     int               `config:"batchSize"`
}

func (cfg Config) withDefaults() Config {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Exporter == "" {
		cfg.Exporter = AuthenticatedStream
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.ResourcePrefix == "" {
		cfg.ResourcePrefix = DefaultResourcePrefix
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = DefaultExportInterval
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = DefaultExportTimeout
	}
	if cfg.SpanProcessor == "" {
		cfg.SpanProcessor = QueueSpanProcessor
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = DefaultMaxQueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize > cfg.MaxQueueSize {
		cfg.BatchSize = cfg.MaxQueueSize
	}
	return cfg
}
