package domain

import "go.trai.ch/zerr"

// SnapshotSchemaVersion is the current layout version of persisted graphs.
const SnapshotSchemaVersion = 1

// Snapshot is the read-only, serializable view of a finalized graph. It is what
// serializers and graph repositories consume.
type Snapshot struct {
	SchemaVersion int             `json:"schemaVersion"`
	DocumentID    EntryID         `json:"documentId"`
	Entries       []SoftwareEntry `json:"entries"`
	Relationships []Relationship  `json:"relationships"`
	Diagnostics   []Diagnostic    `json:"diagnostics,omitempty"`
}

// Snapshot copies the graph into a Snapshot. Entries keep insertion order and
// relationships are sorted.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		DocumentID:    DocumentID,
		Entries:       make([]SoftwareEntry, 0, len(g.order)),
		Relationships: g.Relationships(),
	}
	for e := range g.Entries() {
		s.Entries = append(s.Entries, *e.Clone())
	}
	return s
}

// RestoreGraph rebuilds a graph from a snapshot, preserving every identifier.
// A snapshot with duplicate hashes, duplicate ids or dangling edges is rejected.
func RestoreGraph(s *Snapshot, newID IDGenerator) (*Graph, error) {
	if s.SchemaVersion != SnapshotSchemaVersion {
		return nil, zerr.With(zerr.Wrap(ErrUnsupportedSchema, "cannot restore graph"), "schema_version", s.SchemaVersion)
	}
	g := NewGraph(newID)
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.ID == "" {
			return nil, zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "persisted entry has no id"), "index", i)
		}
		if _, dup := g.EntryByHash(e.Hashes.SHA256); dup {
			return nil, zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "persisted graph repeats a strong hash"), "sha256", e.Hashes.SHA256)
		}
		if _, err := g.Upsert(e); err != nil {
			return nil, zerr.Wrap(err, "failed to restore entry")
		}
	}
	for _, r := range s.Relationships {
		if err := g.AddRelationship(r); err != nil {
			return nil, zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "persisted relationship rejected"), "cause", err.Error())
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
