package domain

import (
	"iter"
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// maxIDAttempts bounds how often a colliding generator is retried beyond the
// number of entries already present.
const maxIDAttempts = 1024

// Graph is the software graph: entries keyed by strong hash, directed relationships
// between them, and a synthetic document root that DESCRIBES the top-level entries.
//
// Cycles are legal. A Graph is not safe for concurrent mutation; a scan owns it
// exclusively and serializes all writes.
type Graph struct {
	newID   IDGenerator
	entries map[EntryID]*SoftwareEntry
	byHash  map[string]EntryID
	order   []EntryID
	edges   map[Relationship]struct{}
}

// NewGraph creates an empty graph whose new entries get identifiers from newID.
func NewGraph(newID IDGenerator) *Graph {
	return &Graph{
		newID:   newID,
		entries: make(map[EntryID]*SoftwareEntry),
		byHash:  make(map[string]EntryID),
		edges:   make(map[Relationship]struct{}),
	}
}

// UpsertResult reports where a candidate ended up.
type UpsertResult struct {
	ID     EntryID
	Merged bool
}

// Upsert inserts candidate, or merges it into the entry that already carries the
// same strong hash. A merged entry keeps its identifier. The candidate is not retained.
//
// The merged entry is built on a copy and swapped in, so a failure never leaves a
// partially merged node behind.
func (g *Graph) Upsert(candidate *SoftwareEntry) (UpsertResult, error) {
	if candidate == nil {
		return UpsertResult{}, zerr.Wrap(ErrNoIdentity, "cannot upsert nil entry")
	}
	hashes := candidate.Hashes.Normalize()
	if !hashes.HasStrong() {
		return UpsertResult{}, zerr.With(zerr.Wrap(ErrNoIdentity, "cannot upsert entry"), "sha256", candidate.Hashes.SHA256)
	}

	if id, ok := g.byHash[hashes.SHA256]; ok {
		in := candidate.Clone()
		in.Hashes = hashes
		merged := g.entries[id].Clone()
		merged.Absorb(in)
		g.entries[id] = merged
		return UpsertResult{ID: id, Merged: true}, nil
	}

	id := candidate.ID
	if id == "" {
		fresh, err := g.freshID()
		if err != nil {
			return UpsertResult{}, err
		}
		id = fresh
	} else if g.idTaken(id) {
		return UpsertResult{}, zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "entry id already in use"), "entry_id", id.String())
	}

	entry := candidate.Clone()
	entry.ID = id
	entry.Hashes = hashes
	entry.Names = unionSorted(entry.Names, nil)
	entry.InstallPaths = unionSorted(entry.InstallPaths, nil)
	if entry.FileType == "" {
		entry.FileType = FileTypeUnknown
	}
	g.insert(entry)
	return UpsertResult{ID: id}, nil
}

func (g *Graph) insert(e *SoftwareEntry) {
	g.entries[e.ID] = e
	g.byHash[e.Hashes.SHA256] = e.ID
	g.order = append(g.order, e.ID)
}

func (g *Graph) freshID() (EntryID, error) {
	if g.newID == nil {
		return "", zerr.Wrap(ErrStoreIntegrityViolation, "graph has no id generator")
	}
	// A sequential generator may walk past every identifier already taken.
	for range maxIDAttempts + len(g.entries) {
		id := g.newID()
		if id != "" && !g.idTaken(id) {
			return id, nil
		}
	}
	return "", zerr.Wrap(ErrStoreIntegrityViolation, "id generator produced no unused identifier")
}

func (g *Graph) idTaken(id EntryID) bool {
	if id == DocumentID {
		return true
	}
	_, ok := g.entries[id]
	return ok
}

// Entry returns the entry with the given identifier. The returned value must not be mutated.
func (g *Graph) Entry(id EntryID) (*SoftwareEntry, bool) {
	e, ok := g.entries[id]
	return e, ok
}

// EntryByHash returns the entry whose strong hash is sha256.
func (g *Graph) EntryByHash(sha256 string) (*SoftwareEntry, bool) {
	id, ok := g.byHash[normalizeHex(sha256)]
	if !ok {
		return nil, false
	}
	return g.entries[id], true
}

// Entries yields entries in insertion order.
func (g *Graph) Entries() iter.Seq[*SoftwareEntry] {
	return func(yield func(*SoftwareEntry) bool) {
		for _, id := range g.order {
			if !yield(g.entries[id]) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (g *Graph) Len() int {
	return len(g.entries)
}

// SetUnresolved replaces the unresolved dependency markers of an entry.
func (g *Graph) SetUnresolved(id EntryID, refs []DependencyRef) error {
	e, ok := g.entries[id]
	if !ok {
		return zerr.With(zerr.Wrap(ErrUnknownEntry, "cannot mark unresolved dependencies"), "entry_id", id.String())
	}
	updated := e.Clone()
	updated.Unresolved = cloneRefs(refs)
	g.entries[id] = updated
	return nil
}

// AddRelationship adds an edge. Adding an edge that already exists is a no-op.
func (g *Graph) AddRelationship(r Relationship) error {
	if !r.Kind.Valid() {
		return zerr.With(zerr.Wrap(ErrInvalidRelationship, "unknown relationship kind"), "kind", string(r.Kind))
	}
	if r.To == DocumentID {
		return zerr.With(zerr.Wrap(ErrInvalidRelationship, "document root cannot be a target"), "from", r.From.String())
	}
	for _, id := range []EntryID{r.From, r.To} {
		if !g.idTaken(id) {
			return zerr.With(zerr.Wrap(ErrUnknownEntry, "relationship endpoint missing"), "entry_id", id.String())
		}
	}
	g.edges[r] = struct{}{}
	return nil
}

// HasRelationship reports whether the edge exists.
func (g *Graph) HasRelationship(r Relationship) bool {
	_, ok := g.edges[r]
	return ok
}

// RemoveRelationships drops every edge of the given kind and returns how many were removed.
func (g *Graph) RemoveRelationships(kind RelationshipKind) int {
	n := 0
	for r := range g.edges {
		if r.Kind == kind {
			delete(g.edges, r)
			n++
		}
	}
	return n
}

// Relationships returns all edges in a stable order.
func (g *Graph) Relationships() []Relationship {
	rels := slices.Collect(maps.Keys(g.edges))
	SortRelationships(rels)
	return rels
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Validate checks the structural invariants of the store: every entry is indexed by
// exactly one strong hash, identifiers are consistent and no edge dangles.
func (g *Graph) Validate() error {
	if len(g.order) != len(g.entries) || len(g.byHash) != len(g.entries) {
		return zerr.With(
			zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "index size mismatch"), "entries", len(g.entries)),
			"hashes", len(g.byHash),
		)
	}
	for _, id := range g.order {
		e, ok := g.entries[id]
		if !ok || e.ID != id {
			return zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "entry id mismatch"), "entry_id", id.String())
		}
		if !e.Hashes.HasStrong() {
			return zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "entry without strong hash"), "entry_id", id.String())
		}
		if g.byHash[e.Hashes.SHA256] != id {
			return zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "duplicate strong hash"), "sha256", e.Hashes.SHA256)
		}
	}
	for r := range g.edges {
		if !g.idTaken(r.From) || !g.idTaken(r.To) || r.To == DocumentID {
			return zerr.With(
				zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "dangling relationship"), "from", r.From.String()),
				"to", r.To.String(),
			)
		}
	}
	return nil
}

// Clone returns a deep copy that shares nothing mutable with g.
func (g *Graph) Clone() *Graph {
	c := NewGraph(g.newID)
	for _, id := range g.order {
		c.insert(g.entries[id].Clone())
	}
	maps.Copy(c.edges, g.edges)
	return c
}

// WithIDGenerator replaces the generator used for entries inserted from now on.
func (g *Graph) WithIDGenerator(newID IDGenerator) *Graph {
	g.newID = newID
	return g
}

// renameEntry moves an entry to a new identifier and rewrites every edge touching it.
func (g *Graph) renameEntry(from, to EntryID) {
	e := g.entries[from]
	delete(g.entries, from)
	e.ID = to
	g.entries[to] = e
	g.byHash[e.Hashes.SHA256] = to
	for i, id := range g.order {
		if id == from {
			g.order[i] = to
		}
	}
	for r := range g.edges {
		if r.From != from && r.To != from {
			continue
		}
		delete(g.edges, r)
		if r.From == from {
			r.From = to
		}
		if r.To == from {
			r.To = to
		}
		g.edges[r] = struct{}{}
	}
}
