// Package dispatch matches files to capabilities and collects their extraction records.
package dispatch

import (
	"cmp"
	"slices"
	"sync"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

// Registry holds the capabilities of one run. It is built once and read concurrently.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]ports.Capability
	sorted []ports.Capability
}

// NewRegistry creates a registry holding caps.
func NewRegistry(caps ...ports.Capability) (*Registry, error) {
	r := &Registry{byName: make(map[string]ports.Capability, len(caps))}
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a capability. Names are unique.
func (r *Registry) Register(c ports.Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, ok := r.byName[name]; ok {
		return zerr.With(zerr.Wrap(domain.ErrDuplicateCapability, "capability already registered"), "capability", name)
	}
	r.byName[name] = c
	r.sorted = append(r.sorted, c)
	slices.SortStableFunc(r.sorted, func(a, b ports.Capability) int {
		if c := cmp.Compare(b.Priority(), a.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
	return nil
}

// Capabilities returns the capabilities by descending priority, then name.
func (r *Registry) Capabilities() []ports.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sorted)
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (ports.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}
