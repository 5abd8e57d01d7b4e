package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/vito/progrock"
)

var _ progrock.Writer = (*ProgressWriter)(nil)

// ProgressWriter prints one line per finished vertex. It discards everything
// until an output is set.
type ProgressWriter struct {
	mu       sync.Mutex
	out      io.Writer
	reported map[string]struct{}
}

// NewProgressWriter creates a ProgressWriter writing to io.Discard.
func NewProgressWriter() *ProgressWriter {
	return &ProgressWriter{out: io.Discard, reported: make(map[string]struct{})}
}

// SetOutput redirects progress lines to w.
func (p *ProgressWriter) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

// WriteStatus implements progrock.Writer.
func (p *ProgressWriter) WriteStatus(update *progrock.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range update.Vertexes {
		if v.Completed == nil {
			continue
		}
		if _, done := p.reported[v.Id]; done {
			continue
		}
		p.reported[v.Id] = struct{}{}

		var err error
		if v.Error != nil {
			_, err = fmt.Fprintf(p.out, "✗ %s: %s\n", v.Name, *v.Error)
		} else {
			_, err = fmt.Fprintf(p.out, "✓ %s\n", v.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Close implements progrock.Writer.
func (p *ProgressWriter) Close() error {
	return nil
}
