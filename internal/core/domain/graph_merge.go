package domain

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Merge folds other into g. Entries with the same strong hash are combined; when both
// graphs know an entry, the identifier of the earlier capture survives. Entries only
// present in other keep their identifier unless it is already used in g, in which case
// a fresh one is assigned. Every edge of other is carried over onto the surviving ids.
func (g *Graph) Merge(other *Graph) error {
	remap := map[EntryID]EntryID{DocumentID: DocumentID}

	for _, oid := range other.order {
		o := other.entries[oid]
		if id, ok := g.byHash[o.Hashes.SHA256]; ok {
			merged := g.entries[id].Clone()
			takeOther := o.ID != id && !g.idTaken(o.ID) && earlier(o, merged)
			merged.Absorb(o)
			g.entries[id] = merged
			if takeOther {
				g.renameEntry(id, o.ID)
				id = o.ID
			}
			remap[oid] = id
			continue
		}

		candidate := o.Clone()
		if g.idTaken(candidate.ID) {
			candidate.ID = ""
		}
		res, err := g.Upsert(candidate)
		if err != nil {
			return zerr.Wrap(err, "failed to merge entry")
		}
		remap[oid] = res.ID
	}

	for r := range other.edges {
		from, okFrom := remap[r.From]
		to, okTo := remap[r.To]
		if !okFrom || !okTo {
			return zerr.With(
				zerr.With(zerr.Wrap(ErrStoreIntegrityViolation, "merged graph has a dangling relationship"), "from", r.From.String()),
				"to", r.To.String(),
			)
		}
		g.edges[Relationship{From: from, To: to, Kind: r.Kind}] = struct{}{}
	}
	return nil
}

func earlier(a, b *SoftwareEntry) bool {
	if a.CaptureTime.IsZero() {
		return false
	}
	return b.CaptureTime.IsZero() || a.CaptureTime.Before(b.CaptureTime)
}

// Fingerprint returns a digest of the graph content that ignores identifiers and
// capture times. Two graphs with equal fingerprints are isomorphic up to id renaming.
func (g *Graph) Fingerprint() uint64 {
	lines := make([]string, 0, len(g.entries)+len(g.edges))
	for _, id := range g.order {
		lines = append(lines, "E|"+canonicalEntry(g.entries[id]))
	}
	for r := range g.edges {
		lines = append(lines, "R|"+g.hashOf(r.From)+"|"+g.hashOf(r.To)+"|"+string(r.Kind))
	}
	slices.Sort(lines)

	d := xxhash.New()
	for _, l := range lines {
		_, _ = d.WriteString(l)
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}

func (g *Graph) hashOf(id EntryID) string {
	if id == DocumentID {
		return "document"
	}
	if e, ok := g.entries[id]; ok {
		return e.Hashes.SHA256
	}
	return "missing:" + id.String()
}

func canonicalEntry(e *SoftwareEntry) string {
	c := e.Clone()
	c.Names = nilIfEmpty(c.Names)
	c.InstallPaths = nilIfEmpty(c.InstallPaths)
	c.Attributes.Capabilities = nilIfEmpty(c.Attributes.Capabilities)
	c.Attributes.EntryPoints = nilIfEmpty(c.Attributes.EntryPoints)
	if len(c.Attributes.Extensions) == 0 {
		c.Attributes.Extensions = nil
	}
	if len(c.Provenance) == 0 {
		c.Provenance = nil
	}
	slices.SortFunc(c.Dependencies, func(a, b DependencyRef) int { return strings.Compare(a.Key(), b.Key()) })
	slices.SortFunc(c.Unresolved, func(a, b DependencyRef) int { return strings.Compare(a.Key(), b.Key()) })
	slices.SortFunc(c.Provenance, func(a, b Provenance) int {
		return strings.Compare(a.Container+"\x00"+a.Member, b.Container+"\x00"+b.Member)
	})
	data, err := json.Marshal(struct {
		Hashes       ContentHashes
		Names        []string
		InstallPaths []string
		Size         int64
		FileType     FileType
		Attributes   Attributes
		Dependencies []DependencyRef
		Unresolved   []DependencyRef
		Provenance   []Provenance
	}{
		c.Hashes, c.Names, c.InstallPaths, c.Size, c.FileType,
		c.Attributes, c.Dependencies, c.Unresolved, c.Provenance,
	})
	if err != nil {
		return c.Hashes.SHA256
	}
	return string(data)
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
