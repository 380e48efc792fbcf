// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// QueueProcessor is a [sdktrace.SpanProcessor] which buffers finished spans
// in a bounded queue and exports them from a single background worker.
// When the queue is full the oldest span is dropped to make room.
type QueueProcessor struct {
	exporter      sdktrace.SpanExporter
	maxQueueSize  int
	batchSize     int
	batchTimeout  time.Duration
	exportTimeout time.Duration
	onError       func(error)

	mu      sync.Mutex
	queue   []sdktrace.ReadOnlySpan
	stopped bool

	exportMu sync.Mutex
	dropped  atomic.Int64

	notify   chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// QueueProcessorOption configures a [QueueProcessor].
type QueueProcessorOption func(*QueueProcessor)

// MaxQueueSize bounds the number of buffered spans.
func MaxQueueSize(n int) QueueProcessorOption {
	return func(p *QueueProcessor) {
		p.maxQueueSize = n
	}
}

// BatchSize is the number of buffered spans which wakes the worker early.
func BatchSize(n int) QueueProcessorOption {
	return func(p *QueueProcessor) {
		p.batchSize = n
	}
}

// BatchTimeout is the longest a span waits in the queue before the worker exports it.
func BatchTimeout(d time.Duration) QueueProcessorOption {
	return func(p *QueueProcessor) {
		p.batchTimeout = d
	}
}

// ExportTimeout bounds a single export call.
func ExportTimeout(d time.Duration) QueueProcessorOption {
	return func(p *QueueProcessor) {
		p.exportTimeout = d
	}
}

// OnExportError registers the handler for failed exports. Defaults to [otel.Handle].
func OnExportError(f func(error)) QueueProcessorOption {
	return func(p *QueueProcessor) {
		p.onError = f
	}
}

// NewQueueProcessor starts the background worker and returns the processor.
func NewQueueProcessor(exporter sdktrace.SpanExporter, opts ...QueueProcessorOption) *QueueProcessor {
	p := &QueueProcessor{
		exporter:      exporter,
		maxQueueSize:  DefaultMaxQueueSize,
		batchSize:     DefaultBatchSize,
		batchTimeout:  DefaultBatchTimeout,
		exportTimeout: DefaultExportTimeout,
		onError:       otel.Handle,
		notify:        make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.batchSize > p.maxQueueSize {
		p.batchSize = p.maxQueueSize
	}
	p.queue = make([]sdktrace.ReadOnlySpan, 0, p.maxQueueSize)

	go p.run()
	return p
}

// Dropped returns the number of spans discarded because the queue was full.
func (p *QueueProcessor) Dropped() int64 {
	return p.dropped.Load()
}

// OnStart implements the [sdktrace.SpanProcessor] interface.
func (p *QueueProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd implements the [sdktrace.SpanProcessor] interface. It never blocks
// on export.
func (p *QueueProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if !s.SpanContext().IsSampled() {
		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if len(p.queue) >= p.maxQueueSize {
		copy(p.queue, p.queue[1:])
		p.queue = p.queue[:len(p.queue)-1]
		p.dropped.Add(1)
	}
	p.queue = append(p.queue, s)
	full := len(p.queue) >= p.batchSize
	p.mu.Unlock()

	if !full {
		return
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *QueueProcessor) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		case <-p.notify:
		}
		_ = p.exportAll(context.Background())
	}
}

func (p *QueueProcessor) drain(limit int) []sdktrace.ReadOnlySpan {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := min(limit, len(p.queue))
	if n == 0 {
		return nil
	}
	batch := make([]sdktrace.ReadOnlySpan, n)
	copy(batch, p.queue[:n])
	p.queue = append(p.queue[:0], p.queue[n:]...)
	return batch
}

func (p *QueueProcessor) exportAll(ctx context.Context) error {
	p.exportMu.Lock()
	defer p.exportMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := p.drain(p.batchSize)
		if len(batch) == 0 {
			return nil
		}

		exportCtx, cancel := context.WithTimeout(ctx, p.exportTimeout)
		err := p.exporter.ExportSpans(exportCtx, batch)
		cancel()
		if err != nil {
			p.onError(err)
		}
	}
}

// ForceFlush implements the [sdktrace.SpanProcessor] interface.
func (p *QueueProcessor) ForceFlush(ctx context.Context) error {
	return p.exportAll(ctx)
}

// Shutdown implements the [sdktrace.SpanProcessor] interface. Spans still
// queued are exported before the exporter is shut down.
func (p *QueueProcessor) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		close(p.stop)
		select {
		case <-p.done:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}

		err = p.exportAll(ctx)
		if serr := p.exporter.Shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
	})
	return err
}
