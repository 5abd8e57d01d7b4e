package telemetry

import (
	"context"

	"go.trai.ch/bom/internal/core/ports"
)

var _ ports.Tracer = (*Fanout)(nil)

// Fanout forwards every span to several tracers.
type Fanout struct {
	tracers []ports.Tracer
}

// NewFanout creates a tracer that starts a span on each of tracers.
func NewFanout(tracers ...ports.Tracer) *Fanout {
	return &Fanout{tracers: tracers}
}

// Start begins a span on every tracer, threading the context through them in order.
func (f *Fanout) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	spans := make(multiSpan, 0, len(f.tracers))
	for _, t := range f.tracers {
		var span ports.Span
		ctx, span = t.Start(ctx, name)
		spans = append(spans, span)
	}
	return ctx, spans
}

type multiSpan []ports.Span

func (m multiSpan) End() {
	for _, s := range m {
		s.End()
	}
}

func (m multiSpan) RecordError(err error) {
	for _, s := range m {
		s.RecordError(err)
	}
}

func (m multiSpan) SetAttribute(key string, value any) {
	for _, s := range m {
		s.SetAttribute(key, value)
	}
}
