package domain

import (
	"cmp"
	"slices"
)

// RelationshipKind is the type of a directed edge between two entries.
type RelationshipKind string

// Relationship kinds.
const (
	Contains  RelationshipKind = "CONTAINS"
	DependsOn RelationshipKind = "DEPENDS_ON"
	Describes RelationshipKind = "DESCRIBES"
)

// Valid reports whether k is one of the known kinds.
func (k RelationshipKind) Valid() bool {
	switch k {
	case Contains, DependsOn, Describes:
		return true
	default:
		return false
	}
}

// Relationship is a directed edge. Edges have set semantics: the triple is the identity.
type Relationship struct {
	From EntryID          `json:"from"`
	To   EntryID          `json:"to"`
	Kind RelationshipKind `json:"kind"`
}

func compareRelationships(a, b Relationship) int {
	return cmp.Or(
		cmp.Compare(a.From, b.From),
		cmp.Compare(a.To, b.To),
		cmp.Compare(a.Kind, b.Kind),
	)
}

// SortRelationships orders edges by source, target and kind.
func SortRelationships(rels []Relationship) {
	slices.SortFunc(rels, compareRelationships)
}
