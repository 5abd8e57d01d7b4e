// Package infer derives relationships between the entries of a merged graph.
package infer

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
)

// Inferencer adds DEPENDS_ON, CONTAINS and DESCRIBES edges to a graph.
type Inferencer struct {
	logger ports.Logger
}

// New creates an Inferencer.
func New(logger ports.Logger) *Inferencer {
	return &Inferencer{logger: logger}
}

type index struct {
	byPath      map[string][]domain.EntryID
	byName      map[string][]domain.EntryID
	byLowerName map[string][]domain.EntryID
}

func buildIndex(g *domain.Graph) *index {
	idx := &index{
		byPath:      make(map[string][]domain.EntryID),
		byName:      make(map[string][]domain.EntryID),
		byLowerName: make(map[string][]domain.EntryID),
	}
	for e := range g.Entries() {
		for _, p := range e.InstallPaths {
			idx.byPath[p] = appendUnique(idx.byPath[p], e.ID)
		}
		for _, n := range e.Names {
			idx.byName[n] = appendUnique(idx.byName[n], e.ID)
			lower := strings.ToLower(n)
			idx.byLowerName[lower] = appendUnique(idx.byLowerName[lower], e.ID)
		}
	}
	return idx
}

func appendUnique(ids []domain.EntryID, id domain.EntryID) []domain.EntryID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// Infer runs one inference pass over g. It is deterministic for a given entry set:
// entries are visited in insertion order and candidates keep index order.
//
// Every inferred edge is recomputed from the entries' dependencies and provenance,
// so a better match found by a later scan replaces a fallback match. The document
// root describes exactly the entries that nothing contains. Unresolved dependency
// markers are replaced on every pass.
func (in *Inferencer) Infer(g *domain.Graph) ([]domain.Diagnostic, error) {
	g.RemoveRelationships(domain.DependsOn)
	g.RemoveRelationships(domain.Contains)

	idx := buildIndex(g)
	var diags []domain.Diagnostic
	unresolved := make(map[domain.EntryID][]domain.DependencyRef)
	var changed []domain.EntryID

	for e := range g.Entries() {
		var missing []domain.DependencyRef
		for _, ref := range e.Dependencies {
			targets := in.resolve(g, idx, e, ref)
			if len(targets) == 0 {
				missing = append(missing, ref)
				diags = append(diags, domain.NewDiagnostic(domain.DiagUnresolvedDependency,
					"no entry satisfies dependency "+describe(ref)).ForEntry(e.ID))
				continue
			}
			if len(targets) > 1 {
				diags = append(diags, domain.NewDiagnostic(domain.DiagAmbiguousDependency,
					fmt.Sprintf("dependency %s matches %d entries", describe(ref), len(targets))).ForEntry(e.ID))
			}
			for _, t := range targets {
				if err := g.AddRelationship(domain.Relationship{From: e.ID, To: t, Kind: domain.DependsOn}); err != nil {
					return nil, integrityError(err)
				}
			}
		}
		if !sameRefs(e.Unresolved, missing) {
			unresolved[e.ID] = missing
			changed = append(changed, e.ID)
		}

		for _, p := range e.Provenance {
			containers := without(idx.byPath[p.Container], e.ID)
			if len(containers) == 0 {
				diags = append(diags, domain.NewDiagnostic(domain.DiagUnresolvedContainer,
					"container "+p.Container+" is not in the graph").ForEntry(e.ID))
				continue
			}
			for _, c := range containers {
				if err := g.AddRelationship(domain.Relationship{From: c, To: e.ID, Kind: domain.Contains}); err != nil {
					return nil, integrityError(err)
				}
			}
		}
	}

	for _, id := range changed {
		if err := g.SetUnresolved(id, unresolved[id]); err != nil {
			return nil, integrityError(err)
		}
	}

	described, err := describeRoots(g)
	if err != nil {
		return nil, err
	}

	in.logger.Debug("inference finished",
		"entries", g.Len(),
		"edges", g.EdgeCount(),
		"top_level", described,
		"diagnostics", len(diags),
	)
	return diags, nil
}

// resolve returns the entries satisfying ref, trying each strategy in turn until
// one yields a candidate that survives the attribute filters.
func (in *Inferencer) resolve(g *domain.Graph, idx *index, self *domain.SoftwareEntry, ref domain.DependencyRef) []domain.EntryID {
	if ref.SHA256 != "" {
		if target, ok := g.EntryByHash(ref.SHA256); ok && target.ID != self.ID {
			return []domain.EntryID{target.ID}
		}
	}
	if ref.Name == "" {
		return nil
	}

	name := strings.ReplaceAll(ref.Name, `\`, "/")
	if strings.Contains(name, "/") {
		if found := filter(g, self, ref, idx.byPath[path.Clean(name)]); len(found) > 0 {
			return found
		}
	} else {
		// The first search path holding a match wins, the way a loader walks them.
		for _, sp := range ref.SearchPaths {
			candidate := path.Join(strings.ReplaceAll(sp, `\`, "/"), name)
			if found := filter(g, self, ref, idx.byPath[candidate]); len(found) > 0 {
				return found
			}
		}
	}

	base := path.Base(name)
	if found := filter(g, self, ref, idx.byName[base]); len(found) > 0 {
		return found
	}
	return filter(g, self, ref, idx.byLowerName[strings.ToLower(base)])
}

// filter drops self and candidates whose known architecture or version conflicts
// with the reference. Unknown attributes never disqualify a candidate.
func filter(g *domain.Graph, self *domain.SoftwareEntry, ref domain.DependencyRef, ids []domain.EntryID) []domain.EntryID {
	var out []domain.EntryID
	for _, id := range ids {
		if id == self.ID {
			continue
		}
		e, ok := g.Entry(id)
		if !ok {
			continue
		}
		if conflicts(ref.Architecture, e.Attributes.Architecture) || conflicts(ref.Version, e.Attributes.Version) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func conflicts(want, have string) bool {
	return want != "" && have != "" && !strings.EqualFold(want, have)
}

func without(ids []domain.EntryID, id domain.EntryID) []domain.EntryID {
	return slices.DeleteFunc(slices.Clone(ids), func(x domain.EntryID) bool { return x == id })
}

func describeRoots(g *domain.Graph) (int, error) {
	g.RemoveRelationships(domain.Describes)

	contained := make(map[domain.EntryID]struct{})
	for _, r := range g.Relationships() {
		if r.Kind == domain.Contains {
			contained[r.To] = struct{}{}
		}
	}

	n := 0
	for e := range g.Entries() {
		if _, ok := contained[e.ID]; ok {
			continue
		}
		if err := g.AddRelationship(domain.Relationship{From: domain.DocumentID, To: e.ID, Kind: domain.Describes}); err != nil {
			return 0, integrityError(err)
		}
		n++
	}
	return n, nil
}

func sameRefs(a, b []domain.DependencyRef) bool {
	return slices.EqualFunc(a, b, func(x, y domain.DependencyRef) bool { return x.Key() == y.Key() })
}

func describe(ref domain.DependencyRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	return "sha256:" + ref.SHA256
}

func integrityError(err error) error {
	return zerr.With(zerr.Wrap(domain.ErrStoreIntegrityViolation, "inference produced an invalid edge"), "cause", err.Error())
}
