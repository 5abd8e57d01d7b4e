package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/bom/internal/core/ports"
)

var _ ports.Tracer = (*ProgrockTracer)(nil)

// ProgrockTracer records every span as a progrock vertex.
type ProgrockTracer struct {
	w   progrock.Writer
	rec *progrock.Recorder
	seq atomic.Uint64
}

// NewProgrockTracer records spans onto w.
func NewProgrockTracer(w progrock.Writer) *ProgrockTracer {
	return &ProgrockTracer{w: w, rec: progrock.NewRecorder(w)}
}

// Start opens a vertex named name. Spans sharing a name get distinct vertices.
func (t *ProgrockTracer) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	d := digest.FromString(name + "#" + strconv.FormatUint(t.seq.Add(1), 10))
	return ctx, &vertexSpan{vertex: t.rec.Vertex(d, name)}
}

// Close flushes the underlying writer.
func (t *ProgrockTracer) Close() error {
	if c, ok := t.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

type vertexSpan struct {
	vertex *progrock.VertexRecorder

	mu    sync.Mutex
	err   error
	ended bool
}

func (s *vertexSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.vertex.Done(s.err)
}

func (s *vertexSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *vertexSpan) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}
