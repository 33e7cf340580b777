package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/stow/internal/core/ports"
)

var (
	_ ports.Tracer = (*OTelTracer)(nil)
	_ ports.Span   = (*OTelSpan)(nil)
)

// LogBufferSize determines the size of the async log channel.
const LogBufferSize = 4096

// Option configures an OTelTracer.
type Option func(*OTelTracer)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *OTelTracer) {
		t.provider = tp
	}
}

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
// Output written to its spans is batched and delivered to the renderer by a
// single goroutine, so the renderer sees each span's output in order.
type OTelTracer struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
	renderer ports.Renderer
	logChan  chan any
	loopDone chan struct{}
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewOTelTracer creates a new OTelTracer with the given instrumentation name.
func NewOTelTracer(name string, opts ...Option) *OTelTracer {
	t := &OTelTracer{
		logChan:  make(chan any, LogBufferSize),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.provider == nil {
		t.provider = otel.GetTracerProvider()
	}
	t.tracer = t.provider.Tracer(name)

	go t.runLoop()
	return t
}

// WithRenderer sets the renderer that receives plans and task output.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
	return t
}

func (t *OTelTracer) runLoop() {
	defer close(t.loopDone)

	for msg := range t.logChan {
		if s, ok := msg.(msgSync); ok {
			close(s.done)
			continue
		}

		t.mu.RLock()
		r := t.renderer
		t.mu.RUnlock()
		if r == nil {
			continue
		}

		switch m := msg.(type) {
		case MsgTaskLog:
			r.OnTaskLog(m.SpanID, m.Data)
		case MsgInitTasks:
			r.OnPlanEmit(m.Tasks)
		}
	}
}

// Shutdown stops the delivery loop after draining queued messages.
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	t.stopOnce.Do(func() {
		close(t.logChan)
	})

	select {
	case <-t.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *OTelTracer) hasRenderer() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.renderer != nil
}

// Start creates a new span. Attributes given as options are set before the
// span is reported as started.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	attrs := make([]attribute.KeyValue, 0, len(cfg.Attributes))
	for k, v := range cfg.Attributes {
		attrs = append(attrs, toAttribute(k, v))
	}

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	s := &OTelSpan{span: span}
	if t.hasRenderer() {
		spanID := span.SpanContext().SpanID().String()
		s.batcher = NewBatchProcessor(0, 0, func(data []byte) {
			t.logChan <- MsgTaskLog{SpanID: spanID, Data: data}
		})
		s.sync = t.sync
	}

	return ctx, s
}

// sync blocks until every message queued so far has been delivered.
func (t *OTelTracer) sync() {
	done := make(chan struct{})
	t.logChan <- msgSync{done: done}
	<-done
}

// EmitPlan records the plan on the current span and forwards it to the
// renderer. It returns once the renderer has received the plan.
func (t *OTelTracer) EmitPlan(ctx context.Context, taskNames []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("tasks", taskNames),
		))
	}

	if t.hasRenderer() {
		t.logChan <- MsgInitTasks{Tasks: taskNames}
		t.sync()
	}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span    trace.Span
	batcher *BatchProcessor
	sync    func()
}

// End flushes the span's pending output, waits for it to reach the renderer
// and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
		s.sync()
	}
	s.span.End()
}

// RecordError records an error for the span.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(toAttribute(key, value))
}

// Write satisfies io.Writer by batching output for the renderer, or by adding
// a log event to the span when no renderer is attached.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}

// SpanID returns the hex span id.
func (s *OTelSpan) SpanID() string {
	return s.span.SpanContext().SpanID().String()
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
