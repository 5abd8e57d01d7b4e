// Package telemetry provides tracer adapters for scan stages.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.trai.ch/bom/internal/core/ports"
)

var _ ports.Tracer = (*LogTracer)(nil)

// LogTracer reports finished spans through the logger at debug level.
type LogTracer struct {
	logger ports.Logger
	now    func() time.Time
}

// NewLogTracer creates a tracer that logs span durations.
func NewLogTracer(logger ports.Logger) *LogTracer {
	return &LogTracer{logger: logger, now: time.Now}
}

// Start begins a span named name.
func (t *LogTracer) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	return ctx, &logSpan{tracer: t, name: name, start: t.now()}
}

type logSpan struct {
	tracer *LogTracer
	name   string
	start  time.Time

	mu    sync.Mutex
	attrs []any
	err   error
	ended bool
}

func (s *logSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	args := append([]any{"span", s.name, "duration", s.tracer.now().Sub(s.start)}, s.attrs...)
	if s.err != nil {
		args = append(args, "error", s.err.Error())
	}
	s.tracer.logger.Debug("span finished", args...)
}

func (s *logSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *logSpan) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, key, value)
}
