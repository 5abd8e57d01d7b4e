// Package merge serializes candidate entries into the graph.
package merge

import (
	"sync"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
)

// Stats counts what a Merger did.
type Stats struct {
	Inserted int
	Merged   int
}

// Merger is the single writer of a graph during a scan.
type Merger struct {
	mu     sync.Mutex
	graph  *domain.Graph
	logger ports.Logger
	stats  Stats
}

// New creates a Merger writing into graph.
func New(graph *domain.Graph, logger ports.Logger) *Merger {
	return &Merger{graph: graph, logger: logger}
}

// Submit inserts candidate or merges it into the entry with the same strong hash.
// Errors wrapping domain.ErrStoreIntegrityViolation are fatal for the scan.
func (m *Merger) Submit(candidate *domain.SoftwareEntry) (domain.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.graph.Upsert(candidate)
	if err != nil {
		return res, err
	}
	if res.Merged {
		m.stats.Merged++
		m.logger.Debug("merged entry", "entry_id", res.ID.String(), "sha256", candidate.Hashes.SHA256)
	} else {
		m.stats.Inserted++
	}
	return res, nil
}

// Stats returns the counters so far.
func (m *Merger) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
